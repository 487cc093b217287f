// Package storage implements the transaction query interface on SQLite.
//
// Every query that touches transactions goes through the ownership predicate
// built by txFilter, so user scoping cannot be forgotten on new query paths.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finbook/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// User backs the authenticated-principal lookup.
type User struct {
	ID       string
	Name     string
	APIToken string
}

// TransactionDetail is a transaction joined with its account and category
// names, as served by the list endpoint.
type TransactionDetail struct {
	core.Transaction
	Account  string
	Category *string
}

// TransactionFilter scopes a transaction query. From and To are inclusive;
// AccountID narrows to one account when non-empty. UserID is mandatory.
type TransactionFilter struct {
	UserID    string
	AccountID string
	From      core.Date
	To        core.Date
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// txFilter builds the WHERE fragment and arguments shared by all transaction
// queries. The accounts join plus user_id check is the authorization
// invariant; it is constructed here and nowhere else.
func txFilter(f TransactionFilter) (string, []any) {
	where := "a.user_id = ?"
	args := []any{f.UserID}
	if f.AccountID != "" {
		where += " AND t.account_id = ?"
		args = append(args, f.AccountID)
	}
	if !f.From.IsZero() {
		where += " AND t.date >= ?"
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where += " AND t.date <= ?"
		args = append(args, f.To.String())
	}
	return where, args
}

// PeriodTotals aggregates income, expenses and remaining for one period.
// Expenses keeps its negative sign so remaining = income + expenses.
func (r *SQLiteRepository) PeriodTotals(ctx context.Context, f TransactionFilter) (core.PeriodTotals, error) {
	where, args := txFilter(f)
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN t.amount >= 0 THEN t.amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN t.amount < 0 THEN t.amount ELSE 0 END), 0) AS expenses,
			COALESCE(SUM(t.amount), 0) AS remaining
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE ` + where

	var totals core.PeriodTotals
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&totals.Income, &totals.Expenses, &totals.Remaining)
	if err != nil {
		return core.PeriodTotals{}, fmt.Errorf("period totals: %w", err)
	}
	return totals, nil
}

// ExpensesByCategory sums absolute expense amounts grouped by category name,
// ordered descending. Uncategorized expenses are not included, matching the
// inner join on categories.
func (r *SQLiteRepository) ExpensesByCategory(ctx context.Context, f TransactionFilter) ([]core.CategoryAggregate, error) {
	where, args := txFilter(f)
	query := `
		SELECT c.name, SUM(ABS(t.amount)) AS value
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN categories c ON c.id = t.category_id
		WHERE t.amount < 0 AND ` + where + `
		GROUP BY c.name
		ORDER BY value DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("expenses by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAggregate
	for rows.Next() {
		var c core.CategoryAggregate
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("scan category aggregate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActivityByDay groups transactions by date with income and expense-magnitude
// sums, ascending by date. Days without activity are absent; the summary
// engine fills the gaps.
func (r *SQLiteRepository) ActivityByDay(ctx context.Context, f TransactionFilter) ([]core.DailyBucket, error) {
	where, args := txFilter(f)
	query := `
		SELECT t.date,
			COALESCE(SUM(CASE WHEN t.amount >= 0 THEN t.amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN t.amount < 0 THEN ABS(t.amount) ELSE 0 END), 0) AS expenses
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE ` + where + `
		GROUP BY t.date
		ORDER BY t.date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity by day: %w", err)
	}
	defer rows.Close()

	var out []core.DailyBucket
	for rows.Next() {
		var dateStr string
		var b core.DailyBucket
		if err := rows.Scan(&dateStr, &b.Income, &b.Expenses); err != nil {
			return nil, fmt.Errorf("scan daily bucket: %w", err)
		}
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", dateStr, err)
		}
		b.Date = d
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetUserByToken resolves an API token to its user, or core.ErrUnauthorized.
func (r *SQLiteRepository) GetUserByToken(ctx context.Context, token string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, api_token FROM users WHERE api_token = ?`, token,
	).Scan(&u.ID, &u.Name, &u.APIToken)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, core.ErrUnauthorized
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by token: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, api_token) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.APIToken)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "name", u.Name)
	return nil
}
