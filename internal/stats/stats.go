// Package stats aggregates fetched orders for the monthly summary
// view. It works on data the API already returned; nothing here talks
// to the network.
package stats

import (
	"sort"
	"time"

	"mylaundry/internal/models"
)

// MonthSummary aggregates the orders created in one calendar month.
type MonthSummary struct {
	Year       int
	Month      time.Month
	Orders     int
	TotalPrice float64
	WeightKg   float64
}

// Label formats the month for display, e.g. "Jun 2024".
func (s MonthSummary) Label() string {
	return time.Date(s.Year, s.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// ByMonth groups orders by the month they were created, newest month
// first.
func ByMonth(orders []models.Order) []MonthSummary {
	grouped := make(map[string]*MonthSummary)
	keys := make([]string, 0)

	for _, o := range orders {
		key := o.CreatedAt.Format("2006-01")
		s, ok := grouped[key]
		if !ok {
			s = &MonthSummary{Year: o.CreatedAt.Year(), Month: o.CreatedAt.Month()}
			grouped[key] = s
			keys = append(keys, key)
		}
		s.Orders++
		s.TotalPrice += o.TotalPrice
		s.WeightKg += o.Weight
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]MonthSummary, 0, len(keys))
	for _, key := range keys {
		out = append(out, *grouped[key])
	}
	return out
}
