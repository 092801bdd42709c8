package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"ventas/internal/core"
)

func TestCloseMonthExcludesSettledSales(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	open := mustCreate(t, svc, CreateInput{Client: "Open", Total: core.CentsOf(10000), Deposit: core.CentsOf(3000), Categories: []string{"Maquillaje"}})
	settledA := mustCreate(t, svc, CreateInput{Client: "SettledA", Total: core.CentsOf(5000), Deposit: core.CentsOf(5000), Categories: []string{"Zapatos"}})
	settledB := mustCreate(t, svc, CreateInput{Client: "SettledB", Total: core.CentsOf(2000), Deposit: core.CentsOf(2000), Categories: []string{"Renacer"}})

	summary, err := svc.CloseMonth(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if summary.Excluded != 2 {
		t.Fatalf("expected 2 exclusions, got %d", summary.Excluded)
	}
	if summary.TotalValue.Cents != 7000 || summary.TotalPaid.Cents != 7000 {
		t.Fatalf("unexpected summary sums: %+v", summary)
	}
	if summary.Period.String() != "2025-03" {
		t.Fatalf("unexpected period %s", summary.Period)
	}

	// excluded sales keep their data and carry the target period tag
	for _, id := range []int64{settledA.ID, settledB.ID} {
		got, err := svc.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %d: %v", id, err)
		}
		if got.InStats {
			t.Fatalf("sale %d still included", id)
		}
		if got.ClosePeriod == nil || got.ClosePeriod.String() != "2025-03" {
			t.Fatalf("sale %d missing period tag: %+v", id, got.ClosePeriod)
		}
	}

	// the open sale is untouched
	got, err := svc.Get(ctx, open.ID)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if !got.InStats || got.ClosePeriod != nil {
		t.Fatalf("open sale must survive the close: %+v", got)
	}
}

func TestCloseMonthIdempotent(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	mustCreate(t, svc, CreateInput{Client: "Ana", Total: core.CentsOf(100), Deposit: core.CentsOf(100), Categories: []string{"Maquillaje"}})

	first, err := svc.CloseMonth(ctx, 3, 2025)
	if err != nil || first.Excluded != 1 {
		t.Fatalf("first close: %v excluded=%d", err, first.Excluded)
	}

	second, err := svc.CloseMonth(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if second.Excluded != 0 || second.TotalValue.Cents != 0 {
		t.Fatalf("second run must exclude nothing: %+v", second)
	}
}

func TestCloseMonthDefaultsToCurrentDate(t *testing.T) {
	svc := newTestService(nil)
	summary, err := svc.CloseMonth(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	// clock is pinned to 2025-03-09
	if summary.Period.Year != 2025 || summary.Period.Month != time.March {
		t.Fatalf("expected current period, got %s", summary.Period)
	}
}

func TestCloseMonthValidation(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	for _, tc := range []struct{ month, year int }{
		{13, 2025},
		{-1, 2025},
		{3, -2},
	} {
		if _, err := svc.CloseMonth(ctx, tc.month, tc.year); !errors.Is(err, core.ErrInvalidPeriod) {
			t.Fatalf("month=%d year=%d expected ErrInvalidPeriod, got %v", tc.month, tc.year, err)
		}
	}
}

func TestPendingClose(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	mustCreate(t, svc, CreateInput{Client: "Open", Total: core.CentsOf(100), Categories: []string{"Maquillaje"}})
	settled := mustCreate(t, svc, CreateInput{Client: "Settled", Total: core.CentsOf(100), Deposit: core.CentsOf(100), Categories: []string{"Maquillaje"}})

	pending, err := svc.PendingClose(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != settled.ID {
		t.Fatalf("expected the settled sale only, got %v", pending)
	}

	if _, err := svc.CloseMonth(ctx, 3, 2025); err != nil {
		t.Fatalf("close: %v", err)
	}
	pending, err = svc.PendingClose(ctx)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty preview after close, got %d,%v", len(pending), err)
	}
}

// The canonical walkthrough: a deposit sale paid off over time, closed
// out at month end, still visible to date-range reporting.
func TestDepositSaleEndToEnd(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	sale := mustCreate(t, svc, CreateInput{
		Client:     "Ana",
		Total:      core.CentsOf(10000),
		Deposit:    core.CentsOf(3000),
		Categories: []string{"Maquillaje"},
	})
	if sale.Balance().Cents != 7000 || sale.Status() != core.StatusOpen {
		t.Fatalf("after deposit: %s %d", sale.Status(), sale.Balance().Cents)
	}

	sale, err := svc.ApplyPayment(ctx, sale.ID, core.CentsOf(7000), "")
	if err != nil {
		t.Fatalf("payoff: %v", err)
	}
	if sale.Status() != core.StatusClosed || sale.PaymentCount() != 2 {
		t.Fatalf("after payoff: %s payments=%d", sale.Status(), sale.PaymentCount())
	}

	if _, err := svc.CloseMonth(ctx, 3, 2025); err != nil {
		t.Fatalf("close: %v", err)
	}

	stats, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if stats.ExcludedCount != 1 {
		t.Fatalf("expected the sale excluded from the summary: %+v", stats)
	}

	ps, err := svc.PeriodQuery(ctx, "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("period query: %v", err)
	}
	if ps.Count != 1 || ps.TotalPaid.Cents != 10000 {
		t.Fatalf("date-range reporting must still see the sale: %+v", ps)
	}
}
