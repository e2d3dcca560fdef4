// Package export writes stored transactions to CSV or XLSX for download.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
)

// Record is the flat row shape both writers share.
type Record struct {
	Date      string `csv:"date"`
	Type      string `csv:"type"`
	Title     string `csv:"title"`
	Amount    string `csv:"amount"`
	Frequency string `csv:"frequency"`
	Notes     string `csv:"notes"`
}

var header = []string{"date", "type", "title", "amount", "frequency", "notes"}

func toRecord(tx *repository.Transaction) Record {
	notes := ""
	if tx.Notes != nil {
		notes = *tx.Notes
	}
	return Record{
		Date:      tx.TransactionDate.Format("2006-01-02"),
		Type:      string(tx.Type),
		Title:     tx.Title,
		Amount:    decimal.New(tx.AmountMinor, -2).StringFixed(2),
		Frequency: string(tx.Frequency),
		Notes:     notes,
	}
}

// WriteCSV writes the transactions as CSV with a header row.
func WriteCSV(w io.Writer, transactions []*repository.Transaction) error {
	records := make([]Record, 0, len(transactions))
	for _, tx := range transactions {
		records = append(records, toRecord(tx))
	}

	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to write csv export: %w", err)
	}
	return nil
}

// WriteXLSX writes the transactions as a single-sheet workbook.
func WriteXLSX(w io.Writer, transactions []*repository.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, tx := range transactions {
		r := toRecord(tx)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []any{r.Date, r.Type, r.Title, r.Amount, r.Frequency, r.Notes}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
