package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ventas/internal/core"
	"ventas/internal/events"
)

// CloseMonth excludes every closed, still-included sale from standing
// statistics and tags it with the target period. A zero month or year
// defaults to the current date. Re-running with nothing newly closed is
// a harmless no-op.
//
// The recorded period is the close operation's target, not each sale's
// own closing date: sales closed in different real months but excluded
// in one run all share the tag.
func (s *Service) CloseMonth(ctx context.Context, month, year int) (core.CloseSummary, error) {
	now := s.now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return core.CloseSummary{}, fmt.Errorf("%w: month %d", core.ErrInvalidPeriod, month)
	}
	if year < 1 {
		return core.CloseSummary{}, fmt.Errorf("%w: year %d", core.ErrInvalidPeriod, year)
	}
	period := core.Period{Year: year, Month: time.Month(month)}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.All(ctx)
	if err != nil {
		return core.CloseSummary{}, fmt.Errorf("list sales: %w", err)
	}

	summary := core.CloseSummary{Period: period, ClosedAt: now}
	for _, sale := range all {
		if sale.Status() != core.StatusClosed || !sale.InStats {
			continue
		}
		sale.InStats = false
		p := period
		sale.ClosePeriod = &p
		if err := s.store.Update(ctx, sale); err != nil {
			return core.CloseSummary{}, fmt.Errorf("exclude sale %d: %w", sale.ID, err)
		}
		summary.Excluded++
		summary.TotalValue = summary.TotalValue.Add(sale.Total)
		summary.TotalPaid = summary.TotalPaid.Add(sale.Paid)
	}

	slog.InfoContext(ctx, "Monthly close completed",
		"period", period.String(),
		"excluded", summary.Excluded,
		"total_value_cents", summary.TotalValue.Cents)

	s.publish(ctx, events.New(events.TypeMonthClosed, 0, map[string]string{
		"period":   period.String(),
		"excluded": strconv.Itoa(summary.Excluded),
	}))

	return summary, nil
}

// PendingClose previews the candidate set the next close would act on:
// closed sales still included in statistics.
func (s *Service) PendingClose(ctx context.Context) ([]*core.Sale, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	var out []*core.Sale
	for _, sale := range all {
		if sale.Status() == core.StatusClosed && sale.InStats {
			out = append(out, sale)
		}
	}
	return out, nil
}
