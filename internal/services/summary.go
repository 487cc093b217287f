// Package services orchestrates the summary engine and transaction
// operations across storage, cache and the event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"finbook/internal/cache"
	"finbook/internal/core"
	"finbook/internal/storage"
)

// defaultPeriodDays is the window used when the caller gives no from date.
const defaultPeriodDays = 30

// SummaryStore is the transaction query interface the engine aggregates
// over. All methods scope by the filter's user id.
type SummaryStore interface {
	PeriodTotals(ctx context.Context, f storage.TransactionFilter) (core.PeriodTotals, error)
	ExpensesByCategory(ctx context.Context, f storage.TransactionFilter) ([]core.CategoryAggregate, error)
	ActivityByDay(ctx context.Context, f storage.TransactionFilter) ([]core.DailyBucket, error)
}

// SummaryRequest carries the raw caller inputs. UserID comes from the auth
// context and is trusted; the date strings are untrusted and strictly parsed.
type SummaryRequest struct {
	UserID    string
	AccountID string
	From      string
	To        string
}

// SummaryService computes time-bucketed financial summaries. Results are
// cached per user with generation-based invalidation: any transaction write
// for a user bumps the generation, orphaning that user's cached entries.
type SummaryService struct {
	store SummaryStore
	cache *cache.LRUCache[core.Summary]

	mu          sync.Mutex
	generations map[string]uint64

	// today is swapped in tests to pin the defaulting behavior
	today func() core.Date
}

func NewSummaryService(store SummaryStore, c *cache.LRUCache[core.Summary]) *SummaryService {
	return &SummaryService{
		store:       store,
		cache:       c,
		generations: make(map[string]uint64),
		today:       core.Today,
	}
}

// Invalidate orphans every cached summary for the user.
func (s *SummaryService) Invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
}

func (s *SummaryService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// Summarize computes the aggregated view model for one period: totals with
// period-over-period changes, the top-category breakdown and the gap-filled
// daily series.
func (s *SummaryService) Summarize(ctx context.Context, req SummaryRequest) (core.Summary, error) {
	if req.UserID == "" {
		return core.Summary{}, core.ErrUnauthorized
	}

	endDate := s.today()
	if req.To != "" {
		parsed, err := core.ParseDate(req.To)
		if err != nil {
			return core.Summary{}, fmt.Errorf("to: %w", err)
		}
		endDate = parsed
	}
	startDate := endDate.AddDays(-defaultPeriodDays)
	if req.From != "" {
		parsed, err := core.ParseDate(req.From)
		if err != nil {
			return core.Summary{}, fmt.Errorf("from: %w", err)
		}
		startDate = parsed
	}

	key := s.cacheKey(req, startDate, endDate)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Summary cache hit", "user_id", req.UserID, "from", startDate.String(), "to", endDate.String())
			return cached, nil
		}
	}

	// Each comparison boundary is shifted back independently by the period
	// length, matching the endpoint's documented change semantics.
	periodLength := startDate.DaysBetween(endDate) + 1
	lastStart := startDate.AddDays(-periodLength)
	lastEnd := endDate.AddDays(-periodLength)

	current := storage.TransactionFilter{
		UserID: req.UserID, AccountID: req.AccountID, From: startDate, To: endDate,
	}
	previous := storage.TransactionFilter{
		UserID: req.UserID, AccountID: req.AccountID, From: lastStart, To: lastEnd,
	}

	// The four aggregate queries are independent; run them concurrently.
	var (
		currentTotals core.PeriodTotals
		lastTotals    core.PeriodTotals
		ranked        []core.CategoryAggregate
		active        []core.DailyBucket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		currentTotals, err = s.store.PeriodTotals(gctx, current)
		return err
	})
	g.Go(func() error {
		var err error
		lastTotals, err = s.store.PeriodTotals(gctx, previous)
		return err
	})
	g.Go(func() error {
		var err error
		ranked, err = s.store.ExpensesByCategory(gctx, current)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.store.ActivityByDay(gctx, current)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("aggregate summary: %w", err)
	}

	summary := core.Summary{
		RemainingAmount: currentTotals.Remaining,
		RemainingChange: core.PercentageChange(currentTotals.Remaining, lastTotals.Remaining),
		IncomeAmount:    currentTotals.Income,
		IncomeChange:    core.PercentageChange(currentTotals.Income, lastTotals.Income),
		ExpensesAmount:  currentTotals.Expenses,
		ExpensesChange:  core.PercentageChange(currentTotals.Expenses, lastTotals.Expenses),
		Categories:      core.RollupCategories(ranked),
		Days:            core.FillMissingDays(active, startDate, endDate),
	}

	if s.cache != nil {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

func (s *SummaryService) cacheKey(req SummaryRequest, from, to core.Date) string {
	gen := s.generation(req.UserID)
	return req.UserID + "|" + req.AccountID + "|" + from.String() + "|" + to.String() + "|" + strconv.FormatUint(gen, 10)
}
