package ledger

import (
	"context"
	"fmt"
	"sort"

	"ventas/internal/core"
)

// Summary computes the standing statistics over sales still included in
// statistics. Headline totals cover open sales only; the per-category
// rows cover every included sale whatever its status. The asymmetry is
// reference behavior and deliberate.
func (s *Service) Summary(ctx context.Context) (core.Stats, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("list sales: %w", err)
	}

	var stats core.Stats
	stats.TotalCount = len(all)

	var included []*core.Sale
	for _, sale := range all {
		if !sale.InStats {
			stats.ExcludedCount++
			continue
		}
		included = append(included, sale)
		switch sale.Status() {
		case core.StatusOpen:
			stats.OpenCount++
			stats.TotalValue = stats.TotalValue.Add(sale.Total)
			stats.TotalPaid = stats.TotalPaid.Add(sale.Paid)
			stats.TotalPending = stats.TotalPending.Add(sale.Balance())
		case core.StatusClosed:
			stats.ClosedCount++
		}
	}

	stats.ByCategory = categoryBreakdown(s.registry, included)
	return stats, nil
}

// PeriodQuery aggregates every sale dated within [start, end]
// inclusive, ignoring both status and the inclusion flag, and builds a
// per-day series in ascending date order.
func (s *Service) PeriodQuery(ctx context.Context, start, end string) (core.PeriodStats, error) {
	from, err := core.ParseDate(start)
	if err != nil {
		return core.PeriodStats{}, err
	}
	to, err := core.ParseDate(end)
	if err != nil {
		return core.PeriodStats{}, err
	}
	if from.After(to.Time) {
		return core.PeriodStats{}, fmt.Errorf("%w: start %s after end %s", core.ErrInvalidDate, from, to)
	}

	all, err := s.store.All(ctx)
	if err != nil {
		return core.PeriodStats{}, fmt.Errorf("list sales: %w", err)
	}

	ps := core.PeriodStats{Start: from, End: to}
	byDay := make(map[string]*core.DayStats)

	for _, sale := range all {
		if sale.SaleDate.Before(from.Time) || sale.SaleDate.After(to.Time) {
			continue
		}
		ps.Sales = append(ps.Sales, sale)
		ps.Count++
		ps.TotalValue = ps.TotalValue.Add(sale.Total)
		ps.TotalPaid = ps.TotalPaid.Add(sale.Paid)
		ps.TotalPending = ps.TotalPending.Add(sale.Balance())
		switch sale.Status() {
		case core.StatusOpen:
			ps.OpenCount++
		case core.StatusClosed:
			ps.ClosedCount++
		}

		key := sale.SaleDate.String()
		day, ok := byDay[key]
		if !ok {
			day = &core.DayStats{Date: sale.SaleDate}
			byDay[key] = day
		}
		day.Count++
		day.Total = day.Total.Add(sale.Total)
		day.Paid = day.Paid.Add(sale.Paid)
	}

	ps.ByCategory = categoryBreakdown(s.registry, ps.Sales)

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ps.ByDay = append(ps.ByDay, *byDay[k])
	}

	return ps, nil
}

// categoryBreakdown iterates the registry, not just the categories
// seen, so every configured tag gets a row even at zero.
func categoryBreakdown(registry *core.Registry, sales []*core.Sale) []core.CategoryStats {
	tags := registry.All()
	out := make([]core.CategoryStats, 0, len(tags))
	for _, tag := range tags {
		row := core.CategoryStats{Category: tag}
		for _, sale := range sales {
			if !sale.HasCategory(tag) {
				continue
			}
			row.Count++
			row.Total = row.Total.Add(sale.Total)
			row.Paid = row.Paid.Add(sale.Paid)
			row.Pending = row.Pending.Add(sale.Balance())
		}
		out = append(out, row)
	}
	return out
}
