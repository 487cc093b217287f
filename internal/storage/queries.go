package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"finbook/internal/core"
)

// ownedAccounts is the sub-select used to scope transaction writes to the
// caller's accounts, mirroring the predicate txFilter applies on reads.
const ownedAccounts = `(SELECT id FROM accounts WHERE user_id = ?)`

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, user_id) VALUES (?, ?, ?)`,
		a.ID, a.Name, a.UserID)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, user_id FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.UserID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, user_id FROM accounts WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&a.ID, &a.Name, &a.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) RenameAccount(ctx context.Context, userID, id, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return fmt.Errorf("rename account: %w", err)
	}
	return requireRow(res)
}

// DeleteAccount removes an account; its transactions are cascade-deleted.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

// BulkDeleteAccounts removes the caller's accounts among ids and returns the
// ids actually deleted. Transactions under them are cascade-deleted.
func (r *SQLiteRepository) BulkDeleteAccounts(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.bulkDeleteOwned(ctx, "accounts", userID, ids)
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, user_id) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.UserID)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, user_id FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RenameCategory(ctx context.Context, userID, id, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return requireRow(res)
}

// DeleteCategory removes a category; transactions referencing it keep
// existing with a null category.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

// BulkDeleteCategories removes the caller's categories among ids and returns
// the ids actually deleted. Transactions keep existing uncategorized.
func (r *SQLiteRepository) BulkDeleteCategories(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.bulkDeleteOwned(ctx, "categories", userID, ids)
}

// bulkDeleteOwned deletes the subset of ids in table that belong to the user.
// table is one of the fixed catalog table names, never caller input.
func (r *SQLiteRepository) bulkDeleteOwned(ctx context.Context, table, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE id IN (`+placeholders+`) AND user_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("select deletable %s: %w", table, err)
	}
	var owned []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan deletable id: %w", err)
		}
		owned = append(owned, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, nil
	}

	placeholders = strings.Repeat("?,", len(owned)-1) + "?"
	delArgs := make([]any, len(owned))
	for i, id := range owned {
		delArgs[i] = id
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id IN (`+placeholders+`)`, delArgs...); err != nil {
		return nil, fmt.Errorf("bulk delete %s: %w", table, err)
	}
	return owned, nil
}

// --- transactions ---

// CreateTransaction inserts one transaction after checking the target
// account belongs to the user.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, t core.Transaction) error {
	return r.BulkCreateTransactions(ctx, userID, []core.Transaction{t})
}

// BulkCreateTransactions inserts a batch atomically. The whole batch is
// rejected if any target account is not owned by the user.
func (r *SQLiteRepository) BulkCreateTransactions(ctx context.Context, userID string, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (id, amount, payee, notes, date, account_id, category_id)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE ? IN `+ownedAccounts)
	if err != nil {
		return fmt.Errorf("prepare bulk create: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		res, err := stmt.ExecContext(ctx,
			t.ID, t.Amount.Miliunits, t.Payee, t.Notes, t.Date.String(),
			t.AccountID, t.CategoryID, t.AccountID, userID)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("account %s: %w", t.AccountID, core.ErrNotFound)
		}
	}
	return dbTx.Commit()
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionDetail, error) {
	where, args := txFilter(f)
	query := `
		SELECT t.id, t.amount, t.payee, t.notes, t.date, t.account_id, t.category_id,
			a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + where + `
		ORDER BY t.date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionDetail
	for rows.Next() {
		d, err := scanTransactionDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (TransactionDetail, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.amount, t.payee, t.notes, t.date, t.account_id, t.category_id,
			a.name, c.name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = ? AND a.user_id = ?`, id, userID)

	d, err := scanTransactionDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TransactionDetail{}, core.ErrNotFound
	}
	return d, err
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID string, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, payee = ?, notes = ?, date = ?, account_id = ?, category_id = ?
		WHERE id = ?
			AND account_id IN `+ownedAccounts+`
			AND ? IN `+ownedAccounts,
		t.Amount.Miliunits, t.Payee, t.Notes, t.Date.String(), t.AccountID, t.CategoryID,
		t.ID, userID, t.AccountID, userID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND account_id IN `+ownedAccounts, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

// BulkDeleteTransactions removes the caller's transactions among ids and
// returns the ids actually deleted. Ids owned by other users are ignored.
func (r *SQLiteRepository) BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id IN (`+placeholders+`) AND a.user_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("select deletable transactions: %w", err)
	}
	var owned []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan deletable id: %w", err)
		}
		owned = append(owned, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, nil
	}

	placeholders = strings.Repeat("?,", len(owned)-1) + "?"
	delArgs := make([]any, len(owned))
	for i, id := range owned {
		delArgs[i] = id
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id IN (`+placeholders+`)`, delArgs...); err != nil {
		return nil, fmt.Errorf("bulk delete transactions: %w", err)
	}
	return owned, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransactionDetail(row rowScanner) (TransactionDetail, error) {
	var d TransactionDetail
	var dateStr string
	var category sql.NullString
	err := row.Scan(&d.ID, &d.Amount.Miliunits, &d.Payee, &d.Notes, &dateStr,
		&d.AccountID, &d.CategoryID, &d.Account, &category)
	if err != nil {
		return TransactionDetail{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return TransactionDetail{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	d.Date = date
	if category.Valid {
		d.Category = &category.String
	}
	return d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
