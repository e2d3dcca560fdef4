// Package validator applies the per-row validation rules to normalized
// import rows. Every rule in the sequence runs (no fail-fast); each failure
// appends one field-scoped error with an actionable message.
package validator

import (
	"fmt"
	"strings"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/normalizer"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/session"
	"github.com/cyberhive54/EZfinance-sub001/pkg/money"
)

const suggestionLimit = 3

var (
	validTypes       = []string{"income", "expense", "transfer"}
	validFrequencies = []string{"none", "daily", "weekly", "monthly", "yearly"}
)

// Reference is the snapshot surface the validator needs: membership checks
// plus the material for "not found" messages.
type Reference interface {
	CanonicalAccount(name string) (string, bool)
	CanonicalCategory(typ, name string) (string, bool)
	AccountNames() []string
	CategoryNames(typ string) []string
	Suggest(name string, limit int) []string
}

// Validate runs the full rule sequence over a normalized row and returns the
// ordered error list. An empty list means the row is valid.
func Validate(row *session.Row, ref Reference) []session.FieldError {
	var errs []session.FieldError
	add := func(field, message string) {
		errs = append(errs, session.FieldError{Field: field, Message: message})
	}

	rowType := strings.ToLower(strings.TrimSpace(row.Type))
	if rowType == "" {
		add("type", fmt.Sprintf("type is required; valid types: %s", strings.Join(validTypes, ", ")))
	} else if !contains(validTypes, rowType) {
		add("type", fmt.Sprintf("type %q is not valid; valid types: %s", row.Type, strings.Join(validTypes, ", ")))
	}

	if strings.TrimSpace(row.Amount) == "" {
		add("amount", "amount is required")
	} else if d, err := money.ParseDecimal(row.Amount); err != nil {
		add("amount", fmt.Sprintf("amount %q is not a number", row.Amount))
	} else if !d.IsPositive() {
		add("amount", fmt.Sprintf("amount %q must be greater than zero", row.Amount))
	}

	if strings.TrimSpace(row.TransactionDate) == "" {
		add("transactionDate", "date is required")
	} else if _, err := normalizer.ParseDate(row.TransactionDate); err != nil {
		add("transactionDate", fmt.Sprintf("date %q is not recognized; use YYYY-MM-DD, MM-DD-YYYY, DDMMYYYY or YYYYMMDD", row.TransactionDate))
	}

	switch rowType {
	case "transfer":
		validateTransfer(row, ref, add)
	case "income", "expense":
		validateIncomeExpense(row, rowType, ref, add)
	}

	if f := strings.TrimSpace(row.Frequency); f != "" && !contains(validFrequencies, strings.ToLower(f)) {
		add("frequency", fmt.Sprintf("frequency %q is not valid; valid frequencies: %s", row.Frequency, strings.Join(validFrequencies, ", ")))
	}

	return errs
}

func validateTransfer(row *session.Row, ref Reference, add func(field, message string)) {
	from := strings.TrimSpace(row.FromAccount)
	to := strings.TrimSpace(row.ToAccount)

	if from == "" && to == "" {
		add("fromAccount/toAccount", "a transfer needs at least one of from account or to account")
		return
	}

	fromName, fromOK := "", false
	toName, toOK := "", false
	if from != "" {
		if fromName, fromOK = ref.CanonicalAccount(from); !fromOK {
			add("fromAccount", notFoundMessage("account", from, ref.AccountNames(), ref))
		}
	}
	if to != "" {
		if toName, toOK = ref.CanonicalAccount(to); !toOK {
			add("toAccount", notFoundMessage("account", to, ref.AccountNames(), ref))
		}
	}

	if fromOK && toOK && fromName == toName {
		add("toAccount", "a transfer needs two different accounts")
	}

	if strings.TrimSpace(row.Category) != "" {
		add("category", "category must be blank for transfers")
	}
}

func validateIncomeExpense(row *session.Row, rowType string, ref Reference, add func(field, message string)) {
	account := strings.TrimSpace(row.Account)
	if account == "" {
		add("account", fmt.Sprintf("account is required; known accounts: %s", enumerate(ref.AccountNames())))
	} else if _, ok := ref.CanonicalAccount(account); !ok {
		add("account", notFoundMessage("account", account, ref.AccountNames(), ref))
	}

	category := strings.TrimSpace(row.Category)
	if category == "" {
		add("category", fmt.Sprintf("category is required; known %s categories: %s", rowType, enumerate(ref.CategoryNames(rowType))))
	} else if _, ok := ref.CanonicalCategory(rowType, category); !ok {
		add("category", notFoundMessage(rowType+" category", category, ref.CategoryNames(rowType), ref))
	}
}

// notFoundMessage enumerates the known valid values and adds closest-match
// suggestions so the user can correct the row rather than guess.
func notFoundMessage(kind, value string, known []string, ref Reference) string {
	msg := fmt.Sprintf("%s %q not found; known values: %s", kind, value, enumerate(known))
	if suggestions := ref.Suggest(value, suggestionLimit); len(suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
	}
	return msg
}

func enumerate(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
