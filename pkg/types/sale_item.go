package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SaleItem is the denormalized product snapshot stored on a sale. Later
// catalog changes never touch it.
type SaleItem struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns price × quantity rounded to cents.
func (i SaleItem) Subtotal() float64 {
	sub := decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
	return sub.Round(2).InexactFloat64()
}

// SaleItems is stored as a JSON document in the sales.items column.
type SaleItems []SaleItem

// Value implements driver.Valuer.
func (s SaleItems) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]SaleItem(s))
	if err != nil {
		return nil, fmt.Errorf("sale items: marshal: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for JSONB (postgres) and TEXT (sqlite) columns.
func (s *SaleItems) Scan(value interface{}) error {
	if value == nil {
		*s = SaleItems{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("sale items: unsupported scan type %T", value)
	}

	if len(raw) == 0 {
		*s = SaleItems{}
		return nil
	}

	var items []SaleItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("sale items: unmarshal: %w", err)
	}
	if items == nil {
		items = []SaleItem{}
	}
	*s = items
	return nil
}

// Quantity returns the number of units across all lines.
func (s SaleItems) Quantity() int {
	total := 0
	for _, item := range s {
		total += item.Quantity
	}
	return total
}

// Clone returns a deep copy so snapshots can be shared without aliasing.
func (s SaleItems) Clone() SaleItems {
	if s == nil {
		return nil
	}
	out := make(SaleItems, len(s))
	copy(out, s)
	return out
}
