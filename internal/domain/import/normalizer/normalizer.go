// Package normalizer canonicalizes the free-text fields of an import row so
// they can be matched against reference data and stored. Normalization never
// discards unmatchable values; they stay as typed for the validator to flag.
package normalizer

import (
	"strings"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/session"
	"github.com/cyberhive54/EZfinance-sub001/pkg/money"
)

// Reference resolves typed names to their canonical stored forms.
type Reference interface {
	CanonicalAccount(name string) (string, bool)
	CanonicalCategory(typ, name string) (string, bool)
}

// Normalize canonicalizes a row in place. Idempotent: normalizing an already
// normalized row changes nothing.
func Normalize(row *session.Row, ref Reference) {
	row.Type = strings.ToLower(strings.TrimSpace(row.Type))

	row.Frequency = strings.ToLower(strings.TrimSpace(row.Frequency))
	if row.Frequency == "" {
		row.Frequency = "none"
	}

	row.Account = canonicalName(row.Account, ref.CanonicalAccount)
	row.FromAccount = canonicalName(row.FromAccount, ref.CanonicalAccount)
	row.ToAccount = canonicalName(row.ToAccount, ref.CanonicalAccount)

	if strings.TrimSpace(row.Category) != "" {
		if name, ok := ref.CanonicalCategory(row.Type, row.Category); ok {
			row.Category = name
		}
	}

	if date, err := CanonicalDate(row.TransactionDate); err == nil {
		row.TransactionDate = date
	}

	if amount, err := money.CanonicalString(row.Amount); err == nil {
		row.Amount = amount
	}
}

// canonicalName replaces a typed name with its canonical stored form on a
// match and leaves it as typed otherwise.
func canonicalName(value string, lookup func(string) (string, bool)) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	if name, ok := lookup(value); ok {
		return name
	}
	return value
}
