// Package session holds the state of one bulk-import session: the raw rows,
// the header decision, the column mapping, and the parsed rows under review.
// State advances through an explicit step machine and the mapping is locked
// once validation begins.
package session

import (
	"errors"
	"fmt"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/mapper"
)

// Step identifies where the session is in the import flow.
type Step string

const (
	StepSource     Step = "source"
	StepPreview    Step = "preview"
	StepMapping    Step = "mapping"
	StepValidation Step = "validation"
	StepSuccess    Step = "success"
)

var (
	// ErrMappingLocked is returned for mapping edits after validation has begun.
	ErrMappingLocked = errors.New("column mapping is locked")
	// ErrInvalidStep is returned when an operation does not apply to the
	// session's current step.
	ErrInvalidStep = errors.New("operation not allowed in current step")
)

// FieldError is one validation failure, scoped to a single field of a row.
type FieldError struct {
	Field   string
	Message string
}

// Row is one candidate transaction parsed from the input. Fields stay strings
// until commit; Raw keeps the original mapped cells for audit and error
// reporting.
type Row struct {
	Index int

	Type            string
	Title           string
	Amount          string
	TransactionDate string
	Account         string
	Category        string
	FromAccount     string
	ToAccount       string
	Frequency       string
	Notes           string

	Raw     map[mapper.Field]string
	Errors  []FieldError
	Checked bool
}

// NewRow builds a row from mapped cell values. Rows start checked; the user
// unchecks the ones to exclude.
func NewRow(index int, fields map[mapper.Field]string) *Row {
	raw := make(map[mapper.Field]string, len(fields))
	for f, v := range fields {
		raw[f] = v
	}

	return &Row{
		Index:           index,
		Type:            fields[mapper.FieldType],
		Title:           fields[mapper.FieldTitle],
		Amount:          fields[mapper.FieldAmount],
		TransactionDate: fields[mapper.FieldTransactionDate],
		Account:         fields[mapper.FieldAccount],
		Category:        fields[mapper.FieldCategory],
		FromAccount:     fields[mapper.FieldFromAccount],
		ToAccount:       fields[mapper.FieldToAccount],
		Frequency:       fields[mapper.FieldFrequency],
		Notes:           fields[mapper.FieldNotes],
		Raw:             raw,
		Checked:         true,
	}
}

// IsValid reports whether the row carries no validation errors.
func (r *Row) IsValid() bool {
	return len(r.Errors) == 0
}

// Field reads a semantic field by name.
func (r *Row) Field(f mapper.Field) string {
	switch f {
	case mapper.FieldType:
		return r.Type
	case mapper.FieldTitle:
		return r.Title
	case mapper.FieldAmount:
		return r.Amount
	case mapper.FieldTransactionDate:
		return r.TransactionDate
	case mapper.FieldAccount:
		return r.Account
	case mapper.FieldCategory:
		return r.Category
	case mapper.FieldFromAccount:
		return r.FromAccount
	case mapper.FieldToAccount:
		return r.ToAccount
	case mapper.FieldFrequency:
		return r.Frequency
	case mapper.FieldNotes:
		return r.Notes
	}
	return ""
}

// SetField writes a semantic field by name. Callers must re-normalize and
// re-validate the row afterwards so IsValid stays truthful.
func (r *Row) SetField(f mapper.Field, value string) {
	switch f {
	case mapper.FieldType:
		r.Type = value
	case mapper.FieldTitle:
		r.Title = value
	case mapper.FieldAmount:
		r.Amount = value
	case mapper.FieldTransactionDate:
		r.TransactionDate = value
	case mapper.FieldAccount:
		r.Account = value
	case mapper.FieldCategory:
		r.Category = value
	case mapper.FieldFromAccount:
		r.FromAccount = value
	case mapper.FieldToAccount:
		r.ToAccount = value
	case mapper.FieldFrequency:
		r.Frequency = value
	case mapper.FieldNotes:
		r.Notes = value
	}
}

// Session tracks one import flow from raw source to commit.
type Session struct {
	step          Step
	rawRows       [][]string
	hasHeader     bool
	mapping       mapper.ColumnMapping
	mappingLocked bool
	rows          []*Row
}

// NewSession starts an empty session at the source step.
func NewSession() *Session {
	return &Session{step: StepSource, mapping: mapper.ColumnMapping{}}
}

func (s *Session) Step() Step                    { return s.step }
func (s *Session) RawRows() [][]string           { return s.rawRows }
func (s *Session) HasHeader() bool               { return s.hasHeader }
func (s *Session) Mapping() mapper.ColumnMapping { return s.mapping }
func (s *Session) Rows() []*Row                  { return s.rows }

// DataRows returns the raw rows with the header row removed when one was
// detected or declared.
func (s *Session) DataRows() [][]string {
	if s.hasHeader && len(s.rawRows) > 0 {
		return s.rawRows[1:]
	}
	return s.rawRows
}

// LoadSource accepts tokenized rows, auto-classifies the header row and
// auto-maps columns, then advances to the preview step.
func (s *Session) LoadSource(rows [][]string) error {
	if s.step != StepSource {
		return fmt.Errorf("%w: load source during %s", ErrInvalidStep, s.step)
	}

	s.rawRows = rows
	s.hasHeader = len(rows) > 0 && mapper.IsHeaderRow(rows[0])
	if s.hasHeader {
		s.mapping = mapper.MapColumns(rows[0])
	} else {
		s.mapping = mapper.ColumnMapping{}
	}
	s.step = StepPreview
	return nil
}

// SetHasHeader overrides the header classification. Allowed until the
// mapping locks.
func (s *Session) SetHasHeader(hasHeader bool) error {
	if s.mappingLocked {
		return ErrMappingLocked
	}
	if s.step != StepPreview && s.step != StepMapping {
		return fmt.Errorf("%w: header override during %s", ErrInvalidStep, s.step)
	}

	s.hasHeader = hasHeader
	if hasHeader && len(s.rawRows) > 0 {
		s.mapping = mapper.MapColumns(s.rawRows[0])
	} else if !hasHeader {
		s.mapping = mapper.ColumnMapping{}
	}
	return nil
}

// ConfirmPreview advances from preview to mapping.
func (s *Session) ConfirmPreview() error {
	if s.step != StepPreview {
		return fmt.Errorf("%w: confirm preview during %s", ErrInvalidStep, s.step)
	}
	s.step = StepMapping
	return nil
}

// SetMapping records a manual column assignment.
func (s *Session) SetMapping(col int, field mapper.Field) error {
	if s.mappingLocked {
		return ErrMappingLocked
	}
	if s.step != StepPreview && s.step != StepMapping {
		return fmt.Errorf("%w: mapping edit during %s", ErrInvalidStep, s.step)
	}
	s.mapping.Set(col, field)
	return nil
}

// ClearMapping removes a column assignment.
func (s *Session) ClearMapping(col int) error {
	if s.mappingLocked {
		return ErrMappingLocked
	}
	if s.step != StepPreview && s.step != StepMapping {
		return fmt.Errorf("%w: mapping edit during %s", ErrInvalidStep, s.step)
	}
	s.mapping.Clear(col)
	return nil
}

// BeginValidation stores the parsed rows, locks the mapping, and advances to
// the validation step.
func (s *Session) BeginValidation(rows []*Row) error {
	if s.step != StepMapping {
		return fmt.Errorf("%w: begin validation during %s", ErrInvalidStep, s.step)
	}
	s.rows = rows
	s.mappingLocked = true
	s.step = StepValidation
	return nil
}

// Row returns the parsed row at the given index.
func (s *Session) Row(index int) (*Row, error) {
	for _, r := range s.rows {
		if r.Index == index {
			return r, nil
		}
	}
	return nil, fmt.Errorf("row %d not found", index)
}

// Complete marks the session successful after commit.
func (s *Session) Complete() error {
	if s.step != StepValidation {
		return fmt.Errorf("%w: complete during %s", ErrInvalidStep, s.step)
	}
	s.step = StepSuccess
	return nil
}

// Reset returns the session to its initial state, discarding all rows.
func (s *Session) Reset() {
	*s = *NewSession()
}
