// Package mapper decides whether the first tokenized row is a header row and
// maps column positions to transaction fields. Auto-detection is a heuristic;
// both the header decision and the mapping stay user-editable until the
// session locks them.
package mapper

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Field names a semantic transaction field a CSV column can map to.
type Field string

const (
	FieldType            Field = "type"
	FieldTitle           Field = "title"
	FieldAmount          Field = "amount"
	FieldTransactionDate Field = "transactionDate"
	FieldAccount         Field = "account"
	FieldCategory        Field = "category"
	FieldFromAccount     Field = "fromAccount"
	FieldToAccount       Field = "toAccount"
	FieldFrequency       Field = "frequency"
	FieldNotes           Field = "notes"
)

// headerKeywords is the fixed vocabulary the header classifier scans for.
var headerKeywords = []string{
	"type", "title", "amount", "date", "account", "category",
	"frequency", "notes", "from", "to", "description",
}

var headerMatcher = ahocorasick.NewStringMatcher(headerKeywords)

// fieldKeywords maps each field to its candidate keywords. Order matters on
// both axes: a column is assigned to the first field whose keyword list
// matches, so a header like "total" lands on amount before toAccount can
// claim it, and "from_account" lands on fromAccount before account.
var fieldKeywords = []struct {
	field    Field
	keywords []string
}{
	{FieldType, []string{"type"}},
	{FieldTitle, []string{"title", "description"}},
	{FieldAmount, []string{"amount", "value", "sum", "total"}},
	{FieldTransactionDate, []string{"date"}},
	{FieldFromAccount, []string{"from"}},
	{FieldToAccount, []string{"to"}},
	{FieldAccount, []string{"account"}},
	{FieldCategory, []string{"category"}},
	{FieldFrequency, []string{"frequency"}},
	{FieldNotes, []string{"notes", "memo"}},
}

// IsHeaderRow reports whether at least half of the cells contain a header
// keyword (case-insensitive substring). False positives and negatives are
// possible; callers surface the result for manual override.
func IsHeaderRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}

	matched := 0
	for _, cell := range cells {
		if len(headerMatcher.Match([]byte(strings.ToLower(cell)))) > 0 {
			matched++
		}
	}
	return matched*2 >= len(cells)
}

// ColumnMapping associates column positions with transaction fields. Columns
// absent from the mapping are ignored downstream.
type ColumnMapping map[int]Field

// MapColumns builds a best-effort mapping from header cell text. Each column
// is tested against the field table in its fixed order and assigned to the
// first field with a keyword substring match; each field is assigned at most
// once, earlier columns winning.
func MapColumns(header []string) ColumnMapping {
	mapping := make(ColumnMapping, len(header))
	assigned := make(map[Field]bool, len(fieldKeywords))

	for col, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(cell))
		if cell == "" {
			continue
		}
		for _, entry := range fieldKeywords {
			if assigned[entry.field] {
				continue
			}
			if containsAny(cell, entry.keywords) {
				mapping[col] = entry.field
				assigned[entry.field] = true
				break
			}
		}
	}
	return mapping
}

// Set records a manual override. The field is removed from any other column
// so a field never reads from two places.
func (m ColumnMapping) Set(col int, field Field) {
	for c, f := range m {
		if f == field && c != col {
			delete(m, c)
		}
	}
	m[col] = field
}

// Clear removes the assignment for a column.
func (m ColumnMapping) Clear(col int) {
	delete(m, col)
}

// Apply projects a raw row through the mapping. Columns past the end of the
// row read as blank.
func (m ColumnMapping) Apply(row []string) map[Field]string {
	fields := make(map[Field]string, len(m))
	for col, field := range m {
		if col >= 0 && col < len(row) {
			fields[field] = row[col]
		} else {
			fields[field] = ""
		}
	}
	return fields
}

func containsAny(cell string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(cell, kw) {
			return true
		}
	}
	return false
}
