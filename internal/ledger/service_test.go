package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ventas/internal/core"
	"ventas/internal/events"
	"ventas/internal/store/memory"
)

var testNow = time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(pub events.Publisher) *Service {
	return New(memory.New(), core.NewRegistry(nil), pub).
		WithClock(func() time.Time { return testNow })
}

func mustCreate(t *testing.T, svc *Service, in CreateInput) *core.Sale {
	t.Helper()
	sale, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return sale
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"empty client", CreateInput{Client: "  ", Total: core.CentsOf(100), Categories: []string{"Maquillaje"}}, core.ErrEmptyClient},
		{"negative total", CreateInput{Client: "Ana", Total: core.CentsOf(-1), Categories: []string{"Maquillaje"}}, core.ErrNegativeAmount},
		{"negative deposit", CreateInput{Client: "Ana", Total: core.CentsOf(100), Deposit: core.CentsOf(-1), Categories: []string{"Maquillaje"}}, core.ErrNegativeAmount},
		{"no categories", CreateInput{Client: "Ana", Total: core.CentsOf(100)}, core.ErrNoValidCategory},
		{"only unknown categories", CreateInput{Client: "Ana", Total: core.CentsOf(100), Categories: []string{"Perfumes"}}, core.ErrNoValidCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(tc.want, core.ErrValidation) {
				t.Fatalf("%v must classify as validation", tc.want)
			}
		})
	}

	// nothing was stored by the rejected requests
	open, err := svc.ListOpen(ctx)
	if err != nil || len(open) != 0 {
		t.Fatalf("rejected creations must store nothing, got %d sales", len(open))
	}
}

func TestCreateDropsUnknownCategoriesSilently(t *testing.T) {
	svc := newTestService(nil)
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Categories: []string{"Maquillaje", "Perfumes", "Zapatos"},
	})
	if len(sale.Categories) != 2 || sale.Categories[0] != "Maquillaje" || sale.Categories[1] != "Zapatos" {
		t.Fatalf("unexpected categories: %v", sale.Categories)
	}
}

func TestCreateDepositSeedsInitialPayment(t *testing.T) {
	svc := newTestService(nil)
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Deposit:    core.CentsOf(3000),
		Categories: []string{"Maquillaje"},
	})
	if sale.PaymentCount() != 1 {
		t.Fatalf("expected one payment, got %d", sale.PaymentCount())
	}
	p := sale.Payments[0]
	if p.Seq != 1 || p.Kind != core.PaymentInitial || p.Amount.Cents != 3000 {
		t.Fatalf("unexpected initial payment: %+v", p)
	}
	if sale.Balance().Cents != 7000 || sale.Status() != core.StatusOpen {
		t.Fatalf("expected open sale with 7000 pending, got %s %d", sale.Status(), sale.Balance().Cents)
	}
}

func TestCreateWithoutDepositHasNoPayments(t *testing.T) {
	svc := newTestService(nil)
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Categories: []string{"Maquillaje"},
	})
	if sale.PaymentCount() != 0 {
		t.Fatalf("expected no payments, got %d", sale.PaymentCount())
	}
}

func TestCreateDefaultsSaleDateToToday(t *testing.T) {
	svc := newTestService(nil)
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(100),
		Categories: []string{"Maquillaje"},
	})
	if sale.SaleDate.String() != "2025-03-09" {
		t.Fatalf("expected today, got %s", sale.SaleDate)
	}
}

func TestCreateOverpaidDepositDerivesClosedSale(t *testing.T) {
	svc := newTestService(nil)
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Deposit:    core.CentsOf(12000),
		Categories: []string{"Maquillaje"},
	})
	if sale.Status() != core.StatusClosed {
		t.Fatalf("expected closed, got %s", sale.Status())
	}
	if sale.Balance().Cents != 0 {
		t.Fatalf("expected zero balance, got %d", sale.Balance().Cents)
	}
}

func TestApplyPaymentLifecycle(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Deposit:    core.CentsOf(3000),
		Categories: []string{"Maquillaje"},
	})

	got, err := svc.ApplyPayment(ctx, sale.ID, core.CentsOf(5000), "")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if got.Balance().Cents != 2000 || got.Status() != core.StatusOpen {
		t.Fatalf("expected open with 2000 pending, got %s %d", got.Status(), got.Balance().Cents)
	}
	last := got.Payments[len(got.Payments)-1]
	if last.Seq != 2 || last.Kind != core.PaymentInstallment {
		t.Fatalf("expected installment seq 2, got %+v", last)
	}

	// exact settle closes the sale
	got, err = svc.ApplyPayment(ctx, sale.ID, core.CentsOf(2000), "cash")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got.Status() != core.StatusClosed || got.Balance().Cents != 0 {
		t.Fatalf("expected closed with zero balance, got %s %d", got.Status(), got.Balance().Cents)
	}
	if got.Payments[2].Kind != "cash" {
		t.Fatalf("free-text kind not kept: %+v", got.Payments[2])
	}

	// a closed sale accepts no further payments
	if _, err := svc.ApplyPayment(ctx, sale.ID, core.CentsOf(1), ""); !errors.Is(err, ErrSaleClosed) {
		t.Fatalf("expected ErrSaleClosed, got %v", err)
	}
}

func TestApplyPaymentRejections(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Deposit:    core.CentsOf(3000),
		Categories: []string{"Maquillaje"},
	})

	cases := []struct {
		name   string
		id     int64
		amount int64
		want   error
	}{
		{"unknown sale", 999, 100, ErrNotFound},
		{"zero amount", sale.ID, 0, core.ErrInvalidAmount},
		{"negative amount", sale.ID, -100, core.ErrInvalidAmount},
		{"over balance", sale.ID, 7001, core.ErrOverpayment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ApplyPayment(ctx, tc.id, core.CentsOf(tc.amount), ""); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// every rejection left the sale untouched
	got, err := svc.Get(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Paid.Cents != 3000 || got.PaymentCount() != 1 {
		t.Fatalf("rejected payments mutated the sale: paid=%d payments=%d", got.Paid.Cents, got.PaymentCount())
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(100),
		Categories: []string{"Maquillaje"},
	})

	existed, err := svc.Delete(ctx, sale.ID)
	if err != nil || !existed {
		t.Fatalf("expected deletion, got %v,%v", existed, err)
	}
	if _, err := svc.Get(ctx, sale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	existed, err = svc.Delete(ctx, sale.ID)
	if err != nil || existed {
		t.Fatalf("second delete must be a no-op, got %v,%v", existed, err)
	}
}

func TestSearchByClient(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	mustCreate(t, svc, CreateInput{Client: "Ana María", Total: core.CentsOf(100), Categories: []string{"Maquillaje"}})
	mustCreate(t, svc, CreateInput{Client: "Berta", Total: core.CentsOf(100), Categories: []string{"Zapatos"}})
	// settled at creation, so not open and never searched
	mustCreate(t, svc, CreateInput{Client: "Anabel", Total: core.CentsOf(100), Deposit: core.CentsOf(100), Categories: []string{"Renacer"}})

	got, err := svc.SearchByClient(ctx, "ana")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Client != "Ana María" {
		t.Fatalf("expected the one open Ana match, got %v", got)
	}

	all, err := svc.SearchByClient(ctx, "  ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("empty query must return every open sale, got %d", len(all))
	}
}

func TestListExcludedAndListAll(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	open := mustCreate(t, svc, CreateInput{Client: "Open", Total: core.CentsOf(10000), Deposit: core.CentsOf(3000), Categories: []string{"Maquillaje"}})
	settled := mustCreate(t, svc, CreateInput{Client: "Settled", Total: core.CentsOf(5000), Deposit: core.CentsOf(5000), Categories: []string{"Zapatos"}})
	if _, err := svc.CloseMonth(ctx, 3, 2025); err != nil {
		t.Fatalf("close: %v", err)
	}

	// the settled sale left the open listing but stays reachable here
	excluded, err := svc.ListExcluded(ctx)
	if err != nil {
		t.Fatalf("list excluded: %v", err)
	}
	if len(excluded) != 1 || excluded[0].ID != settled.ID {
		t.Fatalf("expected the excluded sale only, got %v", excluded)
	}
	if excluded[0].ClosePeriod == nil || excluded[0].ClosePeriod.String() != "2025-03" {
		t.Fatalf("excluded sale must carry its period tag: %+v", excluded[0].ClosePeriod)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != open.ID || all[1].ID != settled.ID {
		t.Fatalf("expected both sales in insertion order, got %v", all)
	}
}

func TestEventsPublishedPerMutation(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(pub)
	ctx := context.Background()

	sale := mustCreate(t, svc, CreateInput{Client: "Ana", Total: core.CentsOf(200), Categories: []string{"Maquillaje"}})
	if _, err := svc.ApplyPayment(ctx, sale.ID, core.CentsOf(200), ""); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := svc.Delete(ctx, sale.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// deleting an unknown id publishes nothing
	if _, err := svc.Delete(ctx, sale.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{events.TypeSaleCreated, events.TypePaymentApplied, events.TypeSaleDeleted}
	got := pub.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	svc := newTestService(&recordingPublisher{fail: true})
	sale := mustCreate(t, svc, CreateInput{Client: "Ana", Total: core.CentsOf(100), Categories: []string{"Maquillaje"}})
	if sale.ID == 0 {
		t.Fatalf("sale not created despite broker failure")
	}
}
