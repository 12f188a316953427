package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/pos-backend/internal/sales"
)

const (
	salesSheet = "Sales"
	itemsSheet = "Items"
)

var salesHeader = []any{
	"Order ID", "Date", "Salesman", "Payment Method", "Items", "Total", "Delivery Status", "Sales Status",
}

// ExportHistory writes list as an xlsx workbook: a Sales sheet with a totals
// row and an Items sheet with the unit ranking.
func ExportHistory(w io.Writer, list []sales.Sale, totals Totals, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, salesSheet, 1, salesHeader); err != nil {
		return err
	}
	row := 2
	for _, s := range list {
		values := []any{
			s.OrderID,
			s.Timestamp.In(loc).Format("2006-01-02 15:04"),
			s.Salesman,
			string(s.PaymentMethod),
			s.ItemCount(),
			s.Total,
			string(s.DeliveryStatus),
			string(s.SalesStatus),
		}
		if err := setRow(f, salesSheet, row, values); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, salesSheet, row, []any{"Total", "", "", "", totals.ItemsSold, totals.Revenue}); err != nil {
		return err
	}

	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("add items sheet: %w", err)
	}
	if err := setRow(f, itemsSheet, 1, []any{"Item", "Quantity"}); err != nil {
		return err
	}
	for i, item := range ItemPerformance(list) {
		if err := setRow(f, itemsSheet, i+2, []any{item.Name, item.Quantity}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
