package reports

import (
	"time"

	"github.com/angelmondragon/pos-backend/internal/sales"
)

// Filter narrows a sale list by date and product. Zero values disable a
// criterion; an empty ProductIDs means every product.
type Filter struct {
	From       *time.Time
	To         *time.Time
	ProductIDs []int
}

// FilterSales returns the sales matching f in their original order. To is
// inclusive through the last millisecond of its calendar day in loc.
func FilterSales(list []sales.Sale, f Filter, loc *time.Location) []sales.Sale {
	if loc == nil {
		loc = time.UTC
	}
	var end time.Time
	if f.To != nil {
		end = EndOfDay(*f.To, loc)
	}
	wanted := make(map[int]struct{}, len(f.ProductIDs))
	for _, id := range f.ProductIDs {
		wanted[id] = struct{}{}
	}

	out := make([]sales.Sale, 0, len(list))
	for _, s := range list {
		if f.From != nil && s.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && s.Timestamp.After(end) {
			continue
		}
		if len(wanted) > 0 && !containsProduct(s, wanted) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// EndOfDay returns 23:59:59.999 of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}

func containsProduct(s sales.Sale, wanted map[int]struct{}) bool {
	for _, item := range s.Items {
		if _, ok := wanted[item.ID]; ok {
			return true
		}
	}
	return false
}
