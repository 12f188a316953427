package types

import (
	"testing"
)

func TestSaleItemsValueScan(t *testing.T) {
	items := SaleItems{
		{ID: 1, Name: "Cabbage", Price: 17.9, Quantity: 2},
		{ID: 5, Name: "Shrimp", Price: 24.9, Quantity: 1},
	}
	value, err := items.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	var fromString SaleItems
	if err := fromString.Scan(value); err != nil {
		t.Fatalf("Scan(string) error: %v", err)
	}
	if len(fromString) != 2 || fromString[1].Name != "Shrimp" || fromString[0].Quantity != 2 {
		t.Fatalf("unexpected scanned items %+v", fromString)
	}

	var fromBytes SaleItems
	if err := fromBytes.Scan([]byte(value.(string))); err != nil {
		t.Fatalf("Scan([]byte) error: %v", err)
	}
	if fromBytes.Quantity() != 3 {
		t.Fatalf("expected 3 units, got %d", fromBytes.Quantity())
	}
}

func TestSaleItemsScanNilAndInvalid(t *testing.T) {
	var items SaleItems
	if err := items.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
	if err := items.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
	if err := items.Scan("{not json"); err == nil {
		t.Fatal("expected malformed json error")
	}
}

func TestSaleItemsNilValue(t *testing.T) {
	var items SaleItems
	value, err := items.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if value != "[]" {
		t.Fatalf("expected empty json array, got %v", value)
	}
}

func TestSaleItemSubtotal(t *testing.T) {
	item := SaleItem{Price: 17.9, Quantity: 3}
	if got := item.Subtotal(); got != 53.7 {
		t.Fatalf("expected 53.70, got %v", got)
	}
}

func TestSaleItemsCloneDoesNotAlias(t *testing.T) {
	items := SaleItems{{ID: 1, Name: "Cabbage", Price: 17.9, Quantity: 1}}
	clone := items.Clone()
	clone[0].Quantity = 9
	if items[0].Quantity != 1 {
		t.Fatal("clone mutated source")
	}
}
