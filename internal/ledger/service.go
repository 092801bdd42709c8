// Package ledger implements the sales ledger engine: transaction
// lifecycle, statistics, period queries and the monthly close.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ventas/internal/core"
	"ventas/internal/events"
	"ventas/internal/store"
)

var (
	// ErrNotFound reports an unknown sale identifier.
	ErrNotFound = errors.New("sale not found")
	// ErrSaleClosed reports an operation disallowed on a closed sale.
	ErrSaleClosed = errors.New("sale is closed")
)

// Service orchestrates every ledger operation over a single store.
// Mutating flows are serialized through one mutex because identifier
// assignment and payment application are read-modify-write sequences.
type Service struct {
	mu        sync.Mutex
	store     store.LedgerStore
	registry  *core.Registry
	publisher events.Publisher
	now       func() time.Time
}

func New(st store.LedgerStore, registry *core.Registry, publisher events.Publisher) *Service {
	return &Service{
		store:     st,
		registry:  registry,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Registry exposes the category registry for the presentation layer.
func (s *Service) Registry() *core.Registry {
	return s.registry
}

// CreateInput carries the already-parsed values of a creation request.
type CreateInput struct {
	Client     string
	Total      core.Money
	Deposit    core.Money
	Categories []string
	SaleDate   core.Date // zero value defaults to today
}

// Create validates, normalizes and stores a new sale. Unknown category
// tags are dropped silently; a request left with no valid tag is
// rejected whole. A deposit above the total is allowed and derives a
// closed sale with zero balance.
func (s *Service) Create(ctx context.Context, in CreateInput) (*core.Sale, error) {
	client := strings.TrimSpace(in.Client)
	if client == "" {
		return nil, core.ErrEmptyClient
	}
	if in.Total.Cents < 0 || in.Deposit.Cents < 0 {
		return nil, core.ErrNegativeAmount
	}
	cats := s.registry.Filter(in.Categories)
	if len(cats) == 0 {
		return nil, core.ErrNoValidCategory
	}

	now := s.now()
	saleDate := in.SaleDate
	if saleDate.IsZero() {
		saleDate = core.DateOf(now)
	}

	sale := &core.Sale{
		Client:     client,
		Total:      in.Total,
		Paid:       in.Deposit,
		Categories: cats,
		SaleDate:   saleDate,
		CreatedAt:  now,
		InStats:    true,
	}
	if in.Deposit.Cents > 0 {
		sale.Payments = []core.Payment{{
			Seq:    1,
			Amount: in.Deposit,
			At:     now,
			Kind:   core.PaymentInitial,
		}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("next id: %w", err)
	}
	sale.ID = id
	if err := s.store.Insert(ctx, sale); err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	slog.InfoContext(ctx, "Sale created",
		"id", sale.ID,
		"client", sale.Client,
		"total_cents", sale.Total.Cents,
		"deposit_cents", sale.Paid.Cents,
		"categories", strings.Join(cats, ","),
		"status", string(sale.Status()))

	s.publish(ctx, events.New(events.TypeSaleCreated, sale.ID, map[string]string{
		"client": sale.Client,
		"total":  sale.Total.String(),
		"status": string(sale.Status()),
	}))

	return sale, nil
}

// ApplyPayment appends one payment to an open sale. Validation runs in
// full before any state changes, so a rejected payment leaves the sale
// untouched.
func (s *Service) ApplyPayment(ctx context.Context, id int64, amount core.Money, kind string) (*core.Sale, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = core.PaymentInstallment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	if sale.Status() == core.StatusClosed {
		return nil, fmt.Errorf("sale %d: %w", id, ErrSaleClosed)
	}
	if amount.Cents <= 0 {
		return nil, core.ErrInvalidAmount
	}
	if amount.Cents > sale.Balance().Cents {
		return nil, core.ErrOverpayment
	}

	sale.Payments = append(sale.Payments, core.Payment{
		Seq:    len(sale.Payments) + 1,
		Amount: amount,
		At:     s.now(),
		Kind:   kind,
	})
	sale.Paid = sale.Paid.Add(amount)

	if err := s.store.Update(ctx, sale); err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}

	closed := sale.Status() == core.StatusClosed
	slog.InfoContext(ctx, "Payment applied",
		"id", sale.ID,
		"amount_cents", amount.Cents,
		"kind", kind,
		"balance_cents", sale.Balance().Cents,
		"closed", closed)

	s.publish(ctx, events.New(events.TypePaymentApplied, sale.ID, map[string]string{
		"amount": amount.String(),
		"kind":   kind,
		"closed": fmt.Sprintf("%t", closed),
	}))

	return sale, nil
}

// Delete removes a sale permanently. It reports whether a record
// existed; deleting an unknown identifier mutates nothing.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed, err := s.store.Remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("remove sale: %w", err)
	}
	if existed {
		slog.InfoContext(ctx, "Sale deleted", "id", id)
		s.publish(ctx, events.New(events.TypeSaleDeleted, id, nil))
	}
	return existed, nil
}

// Get returns one sale by identifier.
func (s *Service) Get(ctx context.Context, id int64) (*core.Sale, error) {
	sale, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return sale, nil
}

// ListOpen returns every open sale in insertion order, regardless of
// the inclusion flag.
func (s *Service) ListOpen(ctx context.Context) ([]*core.Sale, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	var out []*core.Sale
	for _, sale := range all {
		if sale.Status() == core.StatusOpen {
			out = append(out, sale)
		}
	}
	return out, nil
}

// ListAll returns every sale in insertion order, whatever its status
// or inclusion state.
func (s *Service) ListAll(ctx context.Context) ([]*core.Sale, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return all, nil
}

// ListExcluded returns the sales a monthly close removed from standing
// statistics, each still carrying its close period tag.
func (s *Service) ListExcluded(ctx context.Context) ([]*core.Sale, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	var out []*core.Sale
	for _, sale := range all {
		if !sale.InStats {
			out = append(out, sale)
		}
	}
	return out, nil
}

// SearchByClient filters open sales by a case-insensitive client name
// substring. An empty query returns every open sale.
func (s *Service) SearchByClient(ctx context.Context, query string) ([]*core.Sale, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	open, err := s.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return open, nil
	}
	var out []*core.Sale
	for _, sale := range open {
		if strings.Contains(strings.ToLower(sale.Client), query) {
			out = append(out, sale)
		}
	}
	return out, nil
}

// publish delivers an event if a publisher is wired. Publish failures
// never fail the ledger operation that triggered them.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", e.Type, "sale_id", e.SaleID, "error", err)
	}
}
