package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is derived from the outstanding balance, never stored.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Payment kinds. Any free-text kind is accepted on top of these.
const (
	PaymentInitial     = "initial"
	PaymentInstallment = "installment"
)

var (
	// ErrValidation is the base error every validation failure wraps.
	ErrValidation = errors.New("validation")

	ErrEmptyClient     = fmt.Errorf("%w: empty client name", ErrValidation)
	ErrNegativeAmount  = fmt.Errorf("%w: negative amount", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNoValidCategory = fmt.Errorf("%w: no valid category selected", ErrValidation)
	ErrOverpayment     = fmt.Errorf("%w: payment exceeds outstanding balance", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidPeriod   = fmt.Errorf("%w: invalid close period", ErrValidation)
)

type (
	// Date is a calendar date at UTC midnight. The time of day is never
	// meaningful for a sale date.
	Date struct {
		time.Time
	}

	// Period identifies the month a sale was excluded from standing
	// statistics by a monthly close.
	Period struct {
		Year  int        `json:"year"`
		Month time.Month `json:"month"`
	}

	// Payment is immutable once appended to a sale's history.
	Payment struct {
		Seq    int       `json:"seq"` // 1-based, scoped to the sale
		Amount Money     `json:"amount"`
		At     time.Time `json:"at"`
		Kind   string    `json:"kind"`
	}

	// Sale is the central ledger record. Balance and status are derived
	// from Total and Paid so they can never drift.
	Sale struct {
		ID         int64     `json:"id"`
		Client     string    `json:"client"`
		Total      Money     `json:"total"`
		Paid       Money     `json:"paid"`
		Categories []string  `json:"categories"`
		SaleDate   Date      `json:"sale_date"`
		CreatedAt  time.Time `json:"created_at"`
		Payments   []Payment `json:"payments"`

		// InStats is true until a monthly close excludes the sale.
		InStats     bool    `json:"in_stats"`
		ClosePeriod *Period `json:"close_period,omitempty"`
	}
)

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a strict year-month-day date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Balance is the outstanding amount, clamped at zero. A deposit larger
// than the total derives to a zero balance, never a negative one.
func (s *Sale) Balance() Money {
	if s.Paid.Cents >= s.Total.Cents {
		return Money{}
	}
	return Money{Cents: s.Total.Cents - s.Paid.Cents}
}

// Status is closed exactly when nothing is outstanding.
func (s *Sale) Status() Status {
	if s.Paid.Cents >= s.Total.Cents {
		return StatusClosed
	}
	return StatusOpen
}

// PaymentCount always equals the payment history length.
func (s *Sale) PaymentCount() int {
	return len(s.Payments)
}

// HasCategory reports whether the sale carries the given tag.
func (s *Sale) HasCategory(tag string) bool {
	for _, c := range s.Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// Validate checks the construction-time invariants of a sale record.
func (s *Sale) Validate() error {
	if strings.TrimSpace(s.Client) == "" {
		return ErrEmptyClient
	}
	if s.Total.Cents < 0 || s.Paid.Cents < 0 {
		return ErrNegativeAmount
	}
	if len(s.Categories) == 0 {
		return ErrNoValidCategory
	}
	if s.SaleDate.IsZero() {
		return fmt.Errorf("%w: missing sale date", ErrInvalidDate)
	}
	return nil
}
