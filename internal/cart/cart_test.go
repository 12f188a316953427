package cart

import (
	"testing"

	"github.com/angelmondragon/pos-backend/internal/catalog"
)

func TestCartAddIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	var c Cart
	c.Add(catalog.Default(), 1)
	c.Add(catalog.Default(), 1)

	if len(c.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(c.Items))
	}
	if c.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", c.Items[0].Quantity)
	}
}

func TestCartAddIgnoresUnknownProduct(t *testing.T) {
	t.Parallel()

	var c Cart
	if c.Add(catalog.Default(), 999) {
		t.Fatal("expected unknown product to be ignored")
	}
	if !c.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", c.Items)
	}
}

func TestCartSetQuantity(t *testing.T) {
	t.Parallel()

	var c Cart
	c.Add(catalog.Default(), 1)
	c.Add(catalog.Default(), 5)

	c.SetQuantity(5, 4)
	if c.Items[1].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", c.Items[1].Quantity)
	}

	c.SetQuantity(3, 2)
	if len(c.Items) != 2 {
		t.Fatalf("absent id must not add a line, got %+v", c.Items)
	}

	c.SetQuantity(1, 0)
	if len(c.Items) != 1 || c.Items[0].Product.ID != 5 {
		t.Fatalf("expected zero quantity to remove the line, got %+v", c.Items)
	}
}

func TestCartRemoveAbsentIsNoop(t *testing.T) {
	t.Parallel()

	var c Cart
	c.Add(catalog.Default(), 2)
	c.Remove(999)
	if len(c.Items) != 1 {
		t.Fatalf("expected cart unchanged, got %+v", c.Items)
	}
}

func TestCartTotalAndSaleItems(t *testing.T) {
	t.Parallel()

	var c Cart
	c.Add(catalog.Default(), 1)
	c.Add(catalog.Default(), 1)
	c.Add(catalog.Default(), 5)

	if got := c.Total().StringFixed(2); got != "60.70" {
		t.Fatalf("expected total 60.70, got %s", got)
	}
	if got := c.ItemCount(); got != 3 {
		t.Fatalf("expected 3 units, got %d", got)
	}

	items := c.SaleItems()
	if len(items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(items))
	}
	if items[0].Name != "Cabbage" || items[0].Quantity != 2 || items[0].Price != 17.90 {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Name != "Shrimp" || items[1].Quantity != 1 {
		t.Fatalf("unexpected second item %+v", items[1])
	}
}
