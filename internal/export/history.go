// Package export renders booking history as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"dustbinpro/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Booking History"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var historyHeaders = []string{"Booking ID", "Date", "Service", "Address", "Status", "Price", "Payment"}

// FileName is the download name for a history export generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("booking_history_%s.xlsx", now.Format("2006-01-02"))
}

// WriteHistory writes one row per booking view under a styled header row.
func WriteHistory(w io.Writer, views []models.BookingView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "G1", headerStyle)
	}

	priceStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 2})
	for i, v := range views {
		row := i + 2
		values := []interface{}{
			v.BookingID,
			v.Date.UTC().Format("2006-01-02"),
			v.ServiceType,
			v.Address,
			v.Status,
			v.FinalPrice,
			v.PaymentStatus,
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, val); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
		if priceStyle != 0 {
			cell, _ := excelize.CoordinatesToCellName(6, row)
			_ = f.SetCellStyle(SheetName, cell, cell, priceStyle)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38)
	_ = f.SetColWidth(SheetName, "B", "C", 14)
	_ = f.SetColWidth(SheetName, "D", "D", 40)
	_ = f.SetColWidth(SheetName, "E", "G", 14)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
