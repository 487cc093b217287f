package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"finbook/internal/amqp"
	"finbook/internal/auth"
	"finbook/internal/cache"
	"finbook/internal/config"
	"finbook/internal/core"
	apphttp "finbook/internal/http"
	applog "finbook/internal/log"
	"finbook/internal/importer"
	"finbook/internal/services"
	"finbook/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	log := logger.WithComponent(applog.ComponentApp)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		log.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bootstrapUser(ctx, repo, cfg); err != nil {
		log.Error("Failed to bootstrap user", "error", err)
		os.Exit(1)
	}

	// AMQP is optional; without it, transaction events are simply not emitted.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		log.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		log.Info("AMQP disabled - no AMQP_URL provided")
	}

	// Remote spreadsheet import source is optional too.
	var sheet apphttp.GridSource
	if cfg.GoogleSpreadsheetID != "" {
		var opts []option.ClientOption
		switch {
		case cfg.GoogleAPIKey != "":
			opts = append(opts, option.WithAPIKey(cfg.GoogleAPIKey))
		case cfg.GoogleCredsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredsFile))
		}
		source, err := importer.NewSheetSource(ctx, cfg.GoogleSpreadsheetID, opts...)
		if err != nil {
			log.Error("Failed to initialize spreadsheet source", "error", err)
			os.Exit(1)
		}
		sheet = source
		log.Info("Spreadsheet source initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	summaryCache := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	summaries := services.NewSummaryService(repo, summaryCache)
	transactions := services.NewTransactionService(repo, events, summaries)
	authenticator := auth.NewTokenAuthenticator(repo)

	srv := apphttp.NewServer(":"+cfg.Port, authenticator, summaries, transactions, repo, sheet)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	log.Info("Starting finbook server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("Server stopped gracefully")
}

// bootstrapUser creates the initial user from config when the token is not
// known yet. Without a bootstrap user a fresh database has no way in.
func bootstrapUser(ctx context.Context, repo *storage.SQLiteRepository, cfg *config.Config) error {
	if cfg.BootstrapUserToken == "" {
		return nil
	}
	_, err := repo.GetUserByToken(ctx, cfg.BootstrapUserToken)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrUnauthorized) {
		return err
	}
	return repo.CreateUser(ctx, storage.User{
		ID:       uuid.NewString(),
		Name:     cfg.BootstrapUserName,
		APIToken: cfg.BootstrapUserToken,
	})
}
