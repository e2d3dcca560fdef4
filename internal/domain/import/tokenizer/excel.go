package tokenizer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TokenizeWorkbook reads the first sheet of an XLSX workbook into the same
// row shape Tokenize produces, so spreadsheet uploads flow through the rest
// of the pipeline unchanged.
func TokenizeWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	sheetRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	var rows [][]string
	for _, sheetRow := range sheetRows {
		cells := make([]string, len(sheetRow))
		blank := true
		for i, cell := range sheetRow {
			cells[i] = strings.TrimSpace(cell)
			if cells[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, cells)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	return rows, nil
}
