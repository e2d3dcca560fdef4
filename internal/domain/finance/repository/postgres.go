package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool the repository needs. Tests
// substitute a pgxmock pool.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresFinanceRepository implements FinanceRepository using PostgreSQL
type PostgresFinanceRepository struct {
	pool PgxPool
}

// NewPostgresFinanceRepository creates a new PostgreSQL finance repository
func NewPostgresFinanceRepository(pool PgxPool) *PostgresFinanceRepository {
	return &PostgresFinanceRepository{pool: pool}
}

// ListAccounts retrieves all accounts for a user, oldest first. The first
// account in creation order is the user's primary account.
func (r *PostgresFinanceRepository) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	query := `
		SELECT id, user_id, name, balance_minor, currency_code, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a := &Account{}
		err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.BalanceMinor, &a.CurrencyCode, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListCategories retrieves all categories for a user
func (r *PostgresFinanceRepository) ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	query := `
		SELECT id, user_id, name, type, created_at
		FROM categories
		WHERE user_id = $1
		ORDER BY type, name`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// RecordTransaction inserts the transaction and applies its balance delta in
// a single database transaction.
func (r *PostgresFinanceRepository) RecordTransaction(ctx context.Context, t *Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Frequency == "" {
		t.Frequency = FrequencyNone
	}

	insertQuery := `
		INSERT INTO transactions (id, user_id, account_id, category_id, transfer_group_id, type, title, amount_minor, transaction_date, frequency, next_occurrence, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	err = tx.QueryRow(ctx, insertQuery,
		t.ID,
		t.UserID,
		t.AccountID,
		t.CategoryID,
		t.TransferGroupID,
		t.Type,
		t.Title,
		t.AmountMinor,
		t.TransactionDate,
		t.Frequency,
		t.NextOccurrence,
		t.Notes,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `SELECT adjust_account_balance($1, $2)`, t.AccountID, t.BalanceDelta()).Scan(&newBalance)
	if err != nil {
		return fmt.Errorf("failed to adjust account balance: %w", err)
	}

	return tx.Commit(ctx)
}

// AdjustAccountBalance invokes the balance procedure and returns the new balance
func (r *PostgresFinanceRepository) AdjustAccountBalance(ctx context.Context, accountID uuid.UUID, deltaMinor int64) (int64, error) {
	var newBalance int64
	err := r.pool.QueryRow(ctx, `SELECT adjust_account_balance($1, $2)`, accountID, deltaMinor).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, sql.ErrNoRows
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust account balance: %w", err)
	}
	return newBalance, nil
}

// ListTransactions retrieves transactions for a user within [from, to)
func (r *PostgresFinanceRepository) ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Transaction, error) {
	query := `
		SELECT id, user_id, account_id, category_id, transfer_group_id, type, title, amount_minor, transaction_date, frequency, next_occurrence, notes, created_at
		FROM transactions
		WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date < $3
		ORDER BY transaction_date DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListDueRecurring retrieves recurring transactions whose next occurrence is due
func (r *PostgresFinanceRepository) ListDueRecurring(ctx context.Context, asOf time.Time) ([]*Transaction, error) {
	query := `
		SELECT id, user_id, account_id, category_id, transfer_group_id, type, title, amount_minor, transaction_date, frequency, next_occurrence, notes, created_at
		FROM transactions
		WHERE frequency <> 'none' AND next_occurrence IS NOT NULL AND next_occurrence <= $1
		ORDER BY next_occurrence ASC`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due recurring transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// UpdateNextOccurrence advances a recurring transaction's schedule
func (r *PostgresFinanceRepository) UpdateNextOccurrence(ctx context.Context, id uuid.UUID, next time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE transactions SET next_occurrence = $2 WHERE id = $1`, id, next)
	if err != nil {
		return fmt.Errorf("failed to update next occurrence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanTransactions(rows pgx.Rows) ([]*Transaction, error) {
	var transactions []*Transaction
	for rows.Next() {
		t := &Transaction{}
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.AccountID,
			&t.CategoryID,
			&t.TransferGroupID,
			&t.Type,
			&t.Title,
			&t.AmountMinor,
			&t.TransactionDate,
			&t.Frequency,
			&t.NextOccurrence,
			&t.Notes,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
