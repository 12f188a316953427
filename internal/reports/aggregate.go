package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/internal/sales"
)

// Totals summarizes a filtered sale list.
type Totals struct {
	Revenue   float64 `json:"totalRevenue"`
	ItemsSold int     `json:"totalItemsSold"`
	Count     int     `json:"count"`
}

// WeekRevenue is one point of the weekly series.
type WeekRevenue struct {
	Week    string  `json:"week"`
	Revenue float64 `json:"revenue"`
}

// MonthRevenue is one point of the monthly series.
type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// ItemQuantity is one row of the item ranking.
type ItemQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Performance bundles the three chart series.
type Performance struct {
	Weekly  []WeekRevenue  `json:"weekly"`
	Monthly []MonthRevenue `json:"monthly"`
	Items   []ItemQuantity `json:"items"`
}

func Summarize(list []sales.Sale) Totals {
	revenue := decimal.Zero
	items := 0
	for _, s := range list {
		revenue = revenue.Add(decimal.NewFromFloat(s.Total))
		items += s.ItemCount()
	}
	return Totals{
		Revenue:   revenue.InexactFloat64(),
		ItemsSold: items,
		Count:     len(list),
	}
}

// WeekKey formats t's ISO week as "2025-W07". The year is the ISO week-year,
// so the last days of December can belong to week 1 of the next year.
func WeekKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeeklyRevenue sums totals per ISO week, ascending.
func WeeklyRevenue(list []sales.Sale, loc *time.Location) []WeekRevenue {
	if loc == nil {
		loc = time.UTC
	}
	sums := map[string]decimal.Decimal{}
	for _, s := range list {
		key := WeekKey(s.Timestamp, loc)
		sums[key] = sums[key].Add(decimal.NewFromFloat(s.Total))
	}
	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]WeekRevenue, 0, len(keys))
	for _, k := range keys {
		out = append(out, WeekRevenue{Week: k, Revenue: sums[k].InexactFloat64()})
	}
	return out
}

// MonthlyRevenue sums totals per calendar month in chronological order,
// labelled like "Jan 2025".
func MonthlyRevenue(list []sales.Sale, loc *time.Location) []MonthRevenue {
	if loc == nil {
		loc = time.UTC
	}
	sums := map[time.Time]decimal.Decimal{}
	for _, s := range list {
		local := s.Timestamp.In(loc)
		month := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		sums[month] = sums[month].Add(decimal.NewFromFloat(s.Total))
	}
	months := make([]time.Time, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	out := make([]MonthRevenue, 0, len(months))
	for _, m := range months {
		out = append(out, MonthRevenue{Month: m.Format("Jan 2006"), Revenue: sums[m].InexactFloat64()})
	}
	return out
}

// ItemPerformance ranks item names by units sold. Ties keep the order in which
// the names were first seen.
func ItemPerformance(list []sales.Sale) []ItemQuantity {
	index := map[string]int{}
	var out []ItemQuantity
	for _, s := range list {
		for _, item := range s.Items {
			i, ok := index[item.Name]
			if !ok {
				i = len(out)
				index[item.Name] = i
				out = append(out, ItemQuantity{Name: item.Name})
			}
			out[i].Quantity += item.Quantity
		}
	}
	if out == nil {
		return []ItemQuantity{}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out
}

func BuildPerformance(list []sales.Sale, loc *time.Location) Performance {
	return Performance{
		Weekly:  WeeklyRevenue(list, loc),
		Monthly: MonthlyRevenue(list, loc),
		Items:   ItemPerformance(list),
	}
}
