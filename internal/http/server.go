package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finbook/internal/auth"
	"finbook/internal/core"
	"finbook/internal/importer"
	"finbook/internal/services"
	"finbook/internal/storage"
)

// SummaryAPI is the summary engine surface the handlers call.
type SummaryAPI interface {
	Summarize(ctx context.Context, req services.SummaryRequest) (core.Summary, error)
	Invalidate(userID string)
}

// TransactionAPI is the transaction service surface the handlers call.
type TransactionAPI interface {
	Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	BulkCreate(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error)
	Update(ctx context.Context, userID string, t core.Transaction) error
	Delete(ctx context.Context, userID, id string) error
	BulkDelete(ctx context.Context, userID string, ids []string) ([]string, error)
	List(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionDetail, error)
	Get(ctx context.Context, userID, id string) (storage.TransactionDetail, error)
	Import(ctx context.Context, userID, accountID string, records []importer.Record) ([]core.Transaction, error)
}

// CatalogStore covers account and category persistence.
type CatalogStore interface {
	CreateAccount(ctx context.Context, a core.Account) error
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	RenameAccount(ctx context.Context, userID, id, name string) error
	DeleteAccount(ctx context.Context, userID, id string) error
	BulkDeleteAccounts(ctx context.Context, userID string, ids []string) ([]string, error)

	CreateCategory(ctx context.Context, c core.Category) error
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	RenameCategory(ctx context.Context, userID, id, name string) error
	DeleteCategory(ctx context.Context, userID, id string) error
	BulkDeleteCategories(ctx context.Context, userID string, ids []string) ([]string, error)
}

// GridSource pulls a raw cell grid from a remote spreadsheet. Optional; nil
// disables the sheet import route.
type GridSource interface {
	Grid(ctx context.Context, readRange string) ([][]string, error)
}

type Server struct {
	http.Server

	authenticator auth.Authenticator
	summaries     SummaryAPI
	transactions  TransactionAPI
	catalog       CatalogStore
	sheet         GridSource

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// sheet may be nil when no remote spreadsheet is configured.
func NewServer(addr string, authenticator auth.Authenticator, summaries SummaryAPI, transactions TransactionAPI, catalog CatalogStore, sheet GridSource) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		authenticator: authenticator,
		summaries:     summaries,
		transactions:  transactions,
		catalog:       catalog,
		sheet:         sheet,
		rateLimiter:   newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/summary", s.wrap(s.handleSummary))

	mux.HandleFunc("GET /api/transactions", s.wrap(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("POST /api/transactions/bulk-create", s.wrap(s.handleBulkCreateTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.wrap(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.wrap(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/bulk-delete", s.wrap(s.handleBulkDeleteTransactions))

	mux.HandleFunc("POST /api/transactions/import", s.wrap(s.handleImportUpload))
	mux.HandleFunc("GET /api/transactions/import/sheet", s.wrap(s.handleImportSheet))
	mux.HandleFunc("POST /api/transactions/import/commit", s.wrap(s.handleImportCommit))

	mux.HandleFunc("GET /api/accounts", s.wrap(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.wrap(s.handleCreateAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.wrap(s.handleRenameAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.wrap(s.handleDeleteAccount))
	mux.HandleFunc("POST /api/accounts/bulk-delete", s.wrap(s.handleBulkDeleteAccounts))

	mux.HandleFunc("GET /api/categories", s.wrap(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.wrap(s.handleCreateCategory))
	mux.HandleFunc("PATCH /api/categories/{id}", s.wrap(s.handleRenameCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.wrap(s.handleDeleteCategory))
	mux.HandleFunc("POST /api/categories/bulk-delete", s.wrap(s.handleBulkDeleteCategories))

	return s
}

// authedHandler is a handler that runs after authentication succeeds.
type authedHandler func(w http.ResponseWriter, r *http.Request, user storage.User)

// wrap adds request logging, rate limiting, security headers and
// authentication around an API handler.
func (s *Server) wrap(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate-limit mutating requests only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		user, err := s.authenticator.Authenticate(ctx, r)
		if err != nil {
			respondError(rw, r, err)
		} else {
			next(rw, r, user)
		}

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
