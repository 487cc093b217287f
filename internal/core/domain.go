package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the lexical form used for dates at every boundary.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date; time-of-day is not significant for aggregation.
	Date struct {
		time.Time
	}

	// Money is an amount in miliunits: the decimal display value scaled by
	// 1000 and stored as an integer. Negative values are expenses,
	// non-negative values are income.
	Money struct {
		Miliunits int64
	}

	Account struct {
		ID     string
		Name   string
		UserID string
	}

	Category struct {
		ID     string
		Name   string
		UserID string
	}

	Transaction struct {
		ID         string
		Amount     Money
		Payee      string
		Notes      *string
		Date       Date
		AccountID  string
		CategoryID *string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyPayee    = errors.New("empty payee")
	ErrEmptyName     = errors.New("empty name")
	ErrNoAccount     = errors.New("missing account id")
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD string. Any other lexical form is an
// error for the caller to surface.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// AddDays returns the date shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysBetween returns the number of whole days from d to other.
func (d Date) DaysBetween(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// MarshalJSON encodes the date as a bare YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts only the YYYY-MM-DD form.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Payee) == "" {
		return ErrEmptyPayee
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrNoAccount
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// IsExpense reports whether the amount carries an expense sign.
func (m Money) IsExpense() bool {
	return m.Miliunits < 0
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() int64 {
	if m.Miliunits < 0 {
		return -m.Miliunits
	}
	return m.Miliunits
}
