package core

import "time"

// CategoryStats aggregates the sales carrying one category tag.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Total    Money  `json:"total"`
	Paid     Money  `json:"paid"`
	Pending  Money  `json:"pending"`
}

// Stats is the standing summary over sales still included in
// statistics. The headline sums cover open sales only, while the
// category rows cover every included sale regardless of status; the
// asymmetry mirrors the reference system and is relied on by callers.
type Stats struct {
	OpenCount     int `json:"open_count"`
	ClosedCount   int `json:"closed_count"`
	ExcludedCount int `json:"excluded_count"`
	TotalCount    int `json:"total_count"`

	TotalValue   Money `json:"total_value"`
	TotalPaid    Money `json:"total_paid"`
	TotalPending Money `json:"total_pending"`

	ByCategory []CategoryStats `json:"by_category"`
}

// DayStats is one row of the per-day series of a period query.
type DayStats struct {
	Date  Date  `json:"date"`
	Count int   `json:"count"`
	Total Money `json:"total"`
	Paid  Money `json:"paid"`
}

// PeriodStats aggregates every sale dated inside a range, ignoring both
// status and the inclusion flag.
type PeriodStats struct {
	Start Date `json:"start"`
	End   Date `json:"end"`

	Count       int `json:"count"`
	OpenCount   int `json:"open_count"`
	ClosedCount int `json:"closed_count"`

	TotalValue   Money `json:"total_value"`
	TotalPaid    Money `json:"total_paid"`
	TotalPending Money `json:"total_pending"`

	ByCategory []CategoryStats `json:"by_category"`
	ByDay      []DayStats      `json:"by_day"`
	Sales      []*Sale         `json:"sales"`
}

// CloseSummary reports the outcome of one monthly close run.
type CloseSummary struct {
	Period     Period    `json:"period"`
	Excluded   int       `json:"excluded"`
	TotalValue Money     `json:"total_value"`
	TotalPaid  Money     `json:"total_paid"`
	ClosedAt   time.Time `json:"closed_at"`
}
