package catalog

import "fmt"

// Product is a sellable catalog entry. Prices are in the store currency.
type Product struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Catalog is an immutable, ordered product list.
type Catalog struct {
	products []Product
	byID     map[int]int
}

var defaultProducts = []Product{
	{ID: 1, Name: "Cabbage", Price: 17.90},
	{ID: 2, Name: "Leek", Price: 17.90},
	{ID: 3, Name: "Corn", Price: 17.90},
	{ID: 4, Name: "Mushroom", Price: 22.90},
	{ID: 5, Name: "Shrimp", Price: 24.90},
}

// Default returns the register's fixed catalog.
func Default() *Catalog {
	c, err := New(defaultProducts)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog. Ids must be unique and prices non-negative.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[int]int, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("product %d has negative price", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// List returns a copy of the products in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup returns the product with id.
func (c *Catalog) Lookup(id int) (Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}
