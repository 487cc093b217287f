package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finbook/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finbook_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, id, token string) {
	t.Helper()
	if err := repo.CreateUser(context.Background(), User{ID: id, Name: "user " + id, APIToken: token}); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", id, err)
	}
}

func seedAccount(t *testing.T, repo *SQLiteRepository, id, userID string) {
	t.Helper()
	if err := repo.CreateAccount(context.Background(), core.Account{ID: id, Name: "account " + id, UserID: userID}); err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", id, err)
	}
}

func seedTransaction(t *testing.T, repo *SQLiteRepository, userID, id, accountID, date string, amount int64, categoryID *string) {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	err = repo.CreateTransaction(context.Background(), userID, core.Transaction{
		ID:         id,
		Amount:     core.Money{Miliunits: amount},
		Payee:      "payee " + id,
		Date:       d,
		AccountID:  accountID,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction(%s) error = %v", id, err)
	}
}

func TestUserTokenLookup(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo, "u1", "tok-1")

	user, err := repo.GetUserByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetUserByToken() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user id = %s, want u1", user.ID)
	}

	_, err = repo.GetUserByToken(context.Background(), "unknown")
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("unknown token error = %v, want ErrUnauthorized", err)
	}
}

func TestAccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedUser(t, repo, "u2", "tok-2")
	seedAccount(t, repo, "acc-1", "u1")

	accounts, err := repo.ListAccounts(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("listed %d accounts, want 1", len(accounts))
	}

	// other users see nothing and cannot touch it
	if accounts, _ := repo.ListAccounts(ctx, "u2"); len(accounts) != 0 {
		t.Errorf("u2 sees %d foreign accounts", len(accounts))
	}
	if err := repo.RenameAccount(ctx, "u2", "acc-1", "stolen"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign rename error = %v, want ErrNotFound", err)
	}

	if err := repo.RenameAccount(ctx, "u1", "acc-1", "Checking"); err != nil {
		t.Fatalf("RenameAccount() error = %v", err)
	}
	account, err := repo.GetAccount(ctx, "u1", "acc-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if account.Name != "Checking" {
		t.Errorf("name = %s, want Checking", account.Name)
	}

	if err := repo.DeleteAccount(ctx, "u1", "acc-1"); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if _, err := repo.GetAccount(ctx, "u1", "acc-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("after delete error = %v, want ErrNotFound", err)
	}
}

func TestTransactionOwnershipScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedUser(t, repo, "u2", "tok-2")
	seedAccount(t, repo, "acc-1", "u1")
	seedAccount(t, repo, "acc-2", "u2")
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", -12000, nil)

	// inserting into an account the user does not own fails
	d, _ := core.ParseDate("2024-01-06")
	err := repo.CreateTransaction(ctx, "u1", core.Transaction{
		ID: "t-foreign", Amount: core.Money{Miliunits: 100}, Payee: "x", Date: d, AccountID: "acc-2",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign insert error = %v, want ErrNotFound", err)
	}

	// listing is scoped
	list, err := repo.ListTransactions(ctx, TransactionFilter{UserID: "u2"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("u2 sees %d foreign transactions", len(list))
	}

	// bulk delete skips foreign ids
	deleted, err := repo.BulkDeleteTransactions(ctx, "u2", []string{"t1"})
	if err != nil {
		t.Fatalf("BulkDeleteTransactions() error = %v", err)
	}
	if len(deleted) != 0 {
		t.Errorf("u2 deleted %d foreign transactions", len(deleted))
	}
	if _, err := repo.GetTransaction(ctx, "u1", "t1"); err != nil {
		t.Errorf("t1 disappeared: %v", err)
	}
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", -12000, nil)

	d, _ := core.ParseDate("2024-01-07")
	err := repo.UpdateTransaction(ctx, "u1", core.Transaction{
		ID: "t1", Amount: core.Money{Miliunits: -15000}, Payee: "updated", Date: d, AccountID: "acc-1",
	})
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	detail, err := repo.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if detail.Amount.Miliunits != -15000 || detail.Payee != "updated" {
		t.Errorf("updated detail = %+v", detail)
	}
	if detail.Date.String() != "2024-01-07" {
		t.Errorf("date = %s, want 2024-01-07", detail.Date.String())
	}

	if err := repo.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestAccountDeleteCascadesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", -12000, nil)

	if err := repo.DeleteAccount(ctx, "u1", "acc-1"); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	list, err := repo.ListTransactions(ctx, TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("%d transactions survived the cascade", len(list))
	}
}

func TestBulkDeleteCatalogScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedUser(t, repo, "u2", "tok-2")
	seedAccount(t, repo, "acc-1", "u1")
	seedAccount(t, repo, "acc-2", "u1")
	seedAccount(t, repo, "acc-3", "u2")

	deleted, err := repo.BulkDeleteAccounts(ctx, "u1", []string{"acc-1", "acc-3", "missing"})
	if err != nil {
		t.Fatalf("BulkDeleteAccounts() error = %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "acc-1" {
		t.Errorf("deleted = %v, want [acc-1]", deleted)
	}
	if _, err := repo.GetAccount(ctx, "u2", "acc-3"); err != nil {
		t.Errorf("foreign account acc-3 disappeared: %v", err)
	}
}

func TestCategoryDeleteNullsReferences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	if err := repo.CreateCategory(ctx, core.Category{ID: "cat-1", Name: "Food", UserID: "u1"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	catID := "cat-1"
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", -12000, &catID)

	if err := repo.DeleteCategory(ctx, "u1", "cat-1"); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}

	detail, err := repo.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if detail.CategoryID != nil {
		t.Errorf("category id = %v, want nil after delete", *detail.CategoryID)
	}
}

func TestPeriodTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", 200000, nil)
	seedTransaction(t, repo, "u1", "t2", "acc-1", "2024-01-06", -75000, nil)
	seedTransaction(t, repo, "u1", "t3", "acc-1", "2024-02-01", -99999, nil) // outside range

	from, _ := core.ParseDate("2024-01-01")
	to, _ := core.ParseDate("2024-01-31")
	totals, err := repo.PeriodTotals(ctx, TransactionFilter{UserID: "u1", From: from, To: to})
	if err != nil {
		t.Fatalf("PeriodTotals() error = %v", err)
	}
	if totals.Income != 200000 {
		t.Errorf("income = %d, want 200000", totals.Income)
	}
	if totals.Expenses != -75000 {
		t.Errorf("expenses = %d, want -75000", totals.Expenses)
	}
	if totals.Remaining != 125000 {
		t.Errorf("remaining = %d, want 125000", totals.Remaining)
	}
}

func TestExpensesByCategoryOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	for _, c := range []core.Category{
		{ID: "cat-food", Name: "Food", UserID: "u1"},
		{ID: "cat-rent", Name: "Rent", UserID: "u1"},
	} {
		if err := repo.CreateCategory(ctx, c); err != nil {
			t.Fatalf("CreateCategory(%s) error = %v", c.ID, err)
		}
	}
	food, rent := "cat-food", "cat-rent"
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", -30000, &food)
	seedTransaction(t, repo, "u1", "t2", "acc-1", "2024-01-06", -90000, &rent)
	seedTransaction(t, repo, "u1", "t3", "acc-1", "2024-01-07", 50000, &food) // income, excluded
	seedTransaction(t, repo, "u1", "t4", "acc-1", "2024-01-08", -10000, nil)  // uncategorized, excluded

	from, _ := core.ParseDate("2024-01-01")
	to, _ := core.ParseDate("2024-01-31")
	ranked, err := repo.ExpensesByCategory(ctx, TransactionFilter{UserID: "u1", From: from, To: to})
	if err != nil {
		t.Fatalf("ExpensesByCategory() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("ranked %d categories, want 2", len(ranked))
	}
	if ranked[0].Name != "Rent" || ranked[0].Value != 90000 {
		t.Errorf("top category = %+v, want Rent/90000", ranked[0])
	}
	if ranked[1].Name != "Food" || ranked[1].Value != 30000 {
		t.Errorf("second category = %+v, want Food/30000", ranked[1])
	}
}

func TestActivityByDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	seedTransaction(t, repo, "u1", "t1", "acc-1", "2024-01-05", 100000, nil)
	seedTransaction(t, repo, "u1", "t2", "acc-1", "2024-01-05", -40000, nil)
	seedTransaction(t, repo, "u1", "t3", "acc-1", "2024-01-08", -5000, nil)

	from, _ := core.ParseDate("2024-01-01")
	to, _ := core.ParseDate("2024-01-31")
	activity, err := repo.ActivityByDay(ctx, TransactionFilter{UserID: "u1", From: from, To: to})
	if err != nil {
		t.Fatalf("ActivityByDay() error = %v", err)
	}
	if len(activity) != 2 {
		t.Fatalf("activity days = %d, want 2", len(activity))
	}
	first := activity[0]
	if first.Date.String() != "2024-01-05" || first.Income != 100000 || first.Expenses != 40000 {
		t.Errorf("first bucket = %+v", first)
	}
	second := activity[1]
	if second.Date.String() != "2024-01-08" || second.Expenses != 5000 {
		t.Errorf("second bucket = %+v", second)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "tok-1")
	seedAccount(t, repo, "acc-1", "u1")
	seedTransaction(t, repo, "u1", "t-old", "acc-1", "2024-01-01", -1000, nil)
	seedTransaction(t, repo, "u1", "t-new", "acc-1", "2024-01-15", -2000, nil)

	list, err := repo.ListTransactions(ctx, TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d transactions, want 2", len(list))
	}
	if list[0].ID != "t-new" {
		t.Errorf("first listed = %s, want t-new", list[0].ID)
	}
	if list[0].Account == "" {
		t.Error("account name not joined")
	}
}
