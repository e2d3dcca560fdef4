// Package tokenizer turns raw CSV text (or an XLSX sheet) into rows of
// trimmed string cells. It is the single canonical tokenizer for the import
// pipeline; callers never split CSV themselves.
package tokenizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when no data rows remain after discarding blank lines.
var ErrEmptyInput = errors.New("input is empty")

// Tokenize parses raw CSV text into rows of cells. The delimiter is
// auto-detected (comma or semicolon); quoted fields keep embedded delimiters
// and doubled quotes are unescaped. Every cell is trimmed and rows that are
// blank after trimming are discarded.
func Tokenize(raw string) ([][]string, error) {
	return TokenizeWithDelimiter(raw, DetectDelimiter(raw))
}

// TokenizeWithDelimiter parses raw CSV text using an explicit delimiter.
func TokenizeWithDelimiter(raw string, delimiter rune) ([][]string, error) {
	raw = strings.TrimPrefix(raw, "\uFEFF")

	var rows [][]string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		cells, err := splitLine(line, delimiter)
		if err != nil {
			return nil, err
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	return rows, nil
}

// DetectDelimiter picks comma or semicolon, whichever occurs more often in
// the first non-blank line. Comma wins ties.
func DetectDelimiter(raw string) rune {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" {
			continue
		}
		if strings.Count(line, ";") > strings.Count(line, ",") {
			return ';'
		}
		return ','
	}
	return ','
}

// splitLine tokenizes one line, honoring double-quote spans.
func splitLine(line string, delimiter rune) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	record, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize line: %w", err)
	}

	cells := make([]string, len(record))
	blank := true
	for i, cell := range record {
		cells[i] = strings.TrimSpace(cell)
		if cells[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil, nil
	}
	return cells, nil
}
