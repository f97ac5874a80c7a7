// Package spending derives per-category expense summaries from raw
// expense records: lifetime totals, the most recent calendar month
// present in the data, and totals restricted to that month.
package spending

import (
	"time"

	"github.com/shopspring/decimal"

	"findash/internal/api"
	"findash/internal/services/numparse"
)

// uncategorized buckets expenses with a blank category.
const uncategorized = "Uncategorized"

// timestampLayouts are tried in order when parsing expense timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Summary holds the derived per-category totals. LatestMonthKey is
// "YYYY-MM" for the month of the maximum expense timestamp, or empty
// when no expense carries a parsable date.
type Summary struct {
	AllTimeByCategory     map[string]float64 `json:"all_time_by_category"`
	LatestMonthByCategory map[string]float64 `json:"latest_month_by_category"`
	LatestMonthKey        string             `json:"latest_month_key,omitempty"`
}

// Empty returns a summary with no expenses.
func Empty() Summary {
	return Summary{
		AllTimeByCategory:     map[string]float64{},
		LatestMonthByCategory: map[string]float64{},
	}
}

// Summarize computes the expense summaries. Records with an unparsable
// timestamp are dropped before the latest month is determined, so the
// latest month is always the most recent month actually present in the
// data, not today's month.
func Summarize(expenses []api.Expense) Summary {
	type parsed struct {
		category string
		amount   decimal.Decimal
		date     time.Time
	}

	records := make([]parsed, 0, len(expenses))
	for _, exp := range expenses {
		date, ok := parseTimestamp(exp.Timestamp)
		if !ok {
			continue
		}
		category := exp.ExpenseCategory
		if category == "" {
			category = uncategorized
		}
		records = append(records, parsed{
			category: category,
			amount:   decimal.NewFromFloat(numparse.AmountJSON(exp.MonthlyAmount)),
			date:     date,
		})
	}

	if len(records) == 0 {
		return Empty()
	}

	latest := records[0].date
	for _, r := range records[1:] {
		if r.date.After(latest) {
			latest = r.date
		}
	}

	latestYear, latestMonth := latest.Year(), latest.Month()

	allTime := map[string]decimal.Decimal{}
	monthOnly := map[string]decimal.Decimal{}
	for _, r := range records {
		allTime[r.category] = allTime[r.category].Add(r.amount)
		if r.date.Year() == latestYear && r.date.Month() == latestMonth {
			monthOnly[r.category] = monthOnly[r.category].Add(r.amount)
		}
	}

	return Summary{
		AllTimeByCategory:     toFloats(allTime),
		LatestMonthByCategory: toFloats(monthOnly),
		LatestMonthKey:        time.Date(latestYear, latestMonth, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
	}
}

// TopCategory resolves the dominant spending category: the latest
// month's top, falling back to the all-time top when the latest month
// is empty, falling back to "N/A" when there are no expenses at all.
func (s Summary) TopCategory() string {
	if top, ok := topOf(s.LatestMonthByCategory); ok {
		return top
	}
	if top, ok := topOf(s.AllTimeByCategory); ok {
		return top
	}
	return "N/A"
}

// topOf picks the category with the highest total. Ties break toward
// the lexically smaller category so the result is deterministic.
func topOf(totals map[string]float64) (string, bool) {
	best := ""
	bestAmount := 0.0
	found := false
	for category, amount := range totals {
		if !found || amount > bestAmount || (amount == bestAmount && category < best) {
			best = category
			bestAmount = amount
			found = true
		}
	}
	return best, found
}

func parseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toFloats(totals map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(totals))
	for k, v := range totals {
		out[k] = v.InexactFloat64()
	}
	return out
}
