package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/internal/catalog"
	"github.com/angelmondragon/pos-backend/pkg/types"
)

// Item is one cart line: a catalog product and how many units of it.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal returns price × quantity rounded to cents.
func (i Item) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Product.Price).
		Mul(decimal.NewFromInt(int64(i.Quantity))).
		Round(2)
}

// Cart is the list of line items of one register session, in the order they
// were first added.
type Cart struct {
	Items []Item `json:"items"`
}

// Add increments the line for id or appends a new line of quantity one. Ids
// the catalog does not know are ignored and Add reports false.
func (c *Cart) Add(products ProductLookup, id int) bool {
	for i := range c.Items {
		if c.Items[i].Product.ID == id {
			c.Items[i].Quantity++
			return true
		}
	}
	product, ok := products.Lookup(id)
	if !ok {
		return false
	}
	c.Items = append(c.Items, Item{Product: product, Quantity: 1})
	return true
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line.
func (c *Cart) SetQuantity(id, quantity int) {
	if quantity <= 0 {
		c.Remove(id)
		return
	}
	for i := range c.Items {
		if c.Items[i].Product.ID == id {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Remove(id int) {
	for i := range c.Items {
		if c.Items[i].Product.ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the number of units across all lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// SaleItems snapshots the lines into the denormalized form stored on a sale.
func (c *Cart) SaleItems() types.SaleItems {
	out := make(types.SaleItems, 0, len(c.Items))
	for _, item := range c.Items {
		out = append(out, types.SaleItem{
			ID:       item.Product.ID,
			Name:     item.Product.Name,
			Price:    item.Product.Price,
			Quantity: item.Quantity,
		})
	}
	return out
}
