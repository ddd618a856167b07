package reports

import (
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
)

// WriteStockStatusXLSX — отчёт об остатках в xlsx.
func WriteStockStatusXLSX(w io.Writer, rows []StockStatusRow) error {
	header := []interface{}{
		"id", "name", "category", "unit_price", "total_stock_in", "total_stock_out", "current_quantity", "total_price",
	}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		unit, _ := r.Part.UnitPrice.Round(2).Float64()
		total, _ := r.Part.TotalPrice().Round(2).Float64()
		data = append(data, []interface{}{
			r.Part.ID,
			r.Part.Name,
			r.Part.Category,
			unit,
			r.TotalStockIn,
			r.TotalStockOut,
			r.CurrentQuantity,
			total,
		})
	}
	return writeSheet(w, "Stock status", header, data)
}

// WriteDailyStockOutXLSX — расходы за день; время в часовом поясе loc.
func WriteDailyStockOutXLSX(w io.Writer, rows []inventory.StockOutView, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	header := []interface{}{
		"id", "part_id", "part_name", "category", "quantity", "unit_price", "total_price", "date",
	}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		unit, _ := r.UnitPrice.Round(2).Float64()
		total, _ := r.TotalPrice().Round(2).Float64()
		data = append(data, []interface{}{
			r.ID,
			r.PartID,
			r.PartName,
			r.Category,
			r.Quantity,
			unit,
			total,
			r.CreatedAt.In(loc).Format(time.DateTime),
		})
	}
	return writeSheet(w, "Stock out", header, data)
}

func writeSheet(w io.Writer, name string, header []interface{}, data [][]interface{}) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, name); err != nil {
		return err
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
