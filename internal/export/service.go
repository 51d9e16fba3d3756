// Package export renders orders as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/voice-orders/internal/entity"
)

const sheet = "Bestellung"

// OrderSource returns an order with its line items, scoped to the caller.
type OrderSource interface {
	GetOrder(ctx context.Context, userID, orderID string) (*entity.OrderWithItems, error)
}

// Service is a tiny façade over the order pipeline that produces XLSX bytes.
type Service struct {
	orders OrderSource
	logger *slog.Logger
}

func NewService(orders OrderSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: orders, logger: logger}
}

// ExportOrderXLSX returns the workbook for one order and a suggested file name.
func (s *Service) ExportOrderXLSX(ctx context.Context, userID, orderID string) ([]byte, string, error) {
	start := time.Now()
	ow, err := s.orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, "", err
	}
	data, err := RenderOrder(ow)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "order_id", orderID, "error", err)
		return nil, "", err
	}
	s.logger.Info("export.xlsx.ok",
		"order_id", orderID,
		"rows", len(ow.Items),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, FileName(ow.Order), nil
}

// FileName is bestellung-<date>-<id prefix>.xlsx.
func FileName(o *entity.Order) string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("bestellung-%s-%s.xlsx", o.CreatedAt.UTC().Format("2006-01-02"), id)
}

var headers = []string{
	"Artikel",
	"Menge",
	"Einheit",
	"Zugeordneter Artikel",
	"Artikelnummer",
	"Lieferant",
	"Preis",
	"Summe",
	"Konfidenz",
	"Bestätigt",
}

// RenderOrder writes one row per line item in order. Unmatched items leave
// the matched columns blank; Summe is quantity times price.
func RenderOrder(ow *entity.OrderWithItems) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, bold)

	var total int64
	row := 2
	for _, it := range ow.Items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, it.ArticleName)
		write(2, it.Quantity)
		write(3, it.Unit)
		if it.Matched() {
			write(4, deref(it.MatchedArticleName))
			write(5, deref(it.MatchedArticleID))
			write(6, deref(it.MatchedSupplier))
			if it.MatchedPrice != nil {
				line := *it.MatchedPrice * int64(it.Quantity)
				total += line
				write(7, euros(*it.MatchedPrice))
				write(8, euros(line))
			}
		}
		if it.Confidence != nil {
			write(9, *it.Confidence)
		}
		write(10, yesNo(it.Confirmed))
		row++
	}
	if len(ow.Items) > 0 {
		label, _ := excelize.CoordinatesToCellName(7, row)
		sum, _ := excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellValue(sheet, label, "Gesamt")
		_ = f.SetCellValue(sheet, sum, euros(total))
		_ = f.SetCellStyle(sheet, label, sum, bold)
	}
	_ = f.SetCellStyle(sheet, "G2", fmt.Sprintf("H%d", row), money)

	_ = f.SetColWidth(sheet, "A", "A", 32) // article
	_ = f.SetColWidth(sheet, "B", "C", 10) // quantity, unit
	_ = f.SetColWidth(sheet, "D", "D", 32) // matched article
	_ = f.SetColWidth(sheet, "E", "F", 18) // article no, supplier
	_ = f.SetColWidth(sheet, "G", "H", 12) // amounts
	_ = f.SetColWidth(sheet, "I", "J", 11)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func euros(cents int64) float64 {
	return float64(cents) / 100
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "ja"
	}
	return "nein"
}
