// Package repository provides database operations for the finance domain:
// accounts, categories and balance-adjusting transactions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CategoryType separates the two disjoint category lookup sets.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// TransactionType is the stored transaction kind. A transfer is persisted as
// two linked rows (out + in) sharing a TransferGroupID.
type TransactionType string

const (
	TransactionTypeIncome      TransactionType = "income"
	TransactionTypeExpense     TransactionType = "expense"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
)

// Frequency is the recurrence cadence of a transaction.
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Account represents a user account with a server-maintained running balance.
type Account struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	BalanceMinor int64
	CurrencyCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category represents a transaction category, unique per (name, type).
type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Type      CategoryType
	CreatedAt time.Time
}

// Transaction represents one stored ledger entry.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	AccountID       uuid.UUID
	CategoryID      *uuid.UUID
	TransferGroupID *uuid.UUID
	Type            TransactionType
	Title           string
	AmountMinor     int64
	TransactionDate time.Time
	Frequency       Frequency
	NextOccurrence  *time.Time
	Notes           *string
	CreatedAt       time.Time
}

// BalanceDelta returns the signed balance adjustment this transaction applies
// to its account.
func (t *Transaction) BalanceDelta() int64 {
	switch t.Type {
	case TransactionTypeIncome, TransactionTypeTransferIn:
		return t.AmountMinor
	default:
		return -t.AmountMinor
	}
}

// FinanceRepository defines persistence operations for the finance domain
type FinanceRepository interface {
	// Reference data, read once per import session
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]*Account, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error)

	// RecordTransaction inserts the transaction and applies its balance delta
	// through the adjust_account_balance procedure, atomically.
	RecordTransaction(ctx context.Context, tx *Transaction) error

	// AdjustAccountBalance invokes the balance procedure directly and returns
	// the new balance in minor units.
	AdjustAccountBalance(ctx context.Context, accountID uuid.UUID, deltaMinor int64) (int64, error)

	// Export surface
	ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Transaction, error)

	// Recurring surface
	ListDueRecurring(ctx context.Context, asOf time.Time) ([]*Transaction, error)
	UpdateNextOccurrence(ctx context.Context, id uuid.UUID, next time.Time) error
}
