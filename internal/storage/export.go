package storage

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	ordersSheet = "Orders"
	itemsSheet  = "Items"
)

var (
	orderHeaders = []string{
		"ID", "Order ID", "Invoice", "Chat ID", "Customer",
		"Customer Number", "Files", "Total (Rp)", "Created At",
	}
	itemHeaders = []string{
		"Order ID", "File", "Color", "Pages", "Copies", "Cost (Rp)",
	}
)

// ExportOrdersToExcel renders orders as an xlsx workbook with one sheet of
// orders and one of their files.
func ExportOrdersToExcel(orders []Order) ([]byte, error) {
	const operation = "storage.ExportOrdersToExcel"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, fmt.Errorf("%s: rename sheet: %w", operation, err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("%s: create sheet: %w", operation, err)
	}

	if err := writeRow(f, ordersSheet, 1, toCells(orderHeaders)); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if err := writeRow(f, itemsSheet, 1, toCells(itemHeaders)); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	itemRow := 2
	for i, order := range orders {
		row := []any{
			order.ID,
			order.OrderID,
			order.InvoiceNumber,
			order.ChatID,
			order.CustomerName,
			order.CustomerNumber,
			len(order.Items),
			order.Total,
			order.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, ordersSheet, i+2, row); err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}

		for _, item := range order.Items {
			row := []any{order.OrderID, item.Filename, item.Color, item.Pages, item.Copies, item.Cost}
			if err := writeRow(f, itemsSheet, itemRow, row); err != nil {
				return nil, fmt.Errorf("%s: %w", operation, err)
			}
			itemRow++
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("%s: style: %w", operation, err)
	}
	for sheet, width := range map[string]int{ordersSheet: len(orderHeaders), itemsSheet: len(itemHeaders)} {
		last, _ := excelize.CoordinatesToCellName(width, 1)
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return nil, fmt.Errorf("%s: style: %w", operation, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: write: %w", operation, err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(headers []string) []any {
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}
