package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/mapper"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/reference"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/session"
	"github.com/cyberhive54/EZfinance-sub001/pkg/config"
	"github.com/cyberhive54/EZfinance-sub001/pkg/metrics"
)

type fakeRepo struct {
	accounts   []*repository.Account
	categories []*repository.Category
	recorded   []*repository.Transaction

	// failuresByTitle maps a transaction title to how many times recording
	// it should fail before succeeding. Negative means fail forever.
	failuresByTitle map[string]int
}

func (f *fakeRepo) ListAccounts(context.Context, uuid.UUID) ([]*repository.Account, error) {
	return f.accounts, nil
}

func (f *fakeRepo) ListCategories(context.Context, uuid.UUID) ([]*repository.Category, error) {
	return f.categories, nil
}

func (f *fakeRepo) RecordTransaction(_ context.Context, tx *repository.Transaction) error {
	if remaining, ok := f.failuresByTitle[tx.Title]; ok && remaining != 0 {
		if remaining > 0 {
			f.failuresByTitle[tx.Title] = remaining - 1
		}
		return errors.New("mutation rejected")
	}
	f.recorded = append(f.recorded, tx)
	return nil
}

func (f *fakeRepo) AdjustAccountBalance(context.Context, uuid.UUID, int64) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) ListTransactions(context.Context, uuid.UUID, time.Time, time.Time) ([]*repository.Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) ListDueRecurring(context.Context, time.Time) ([]*repository.Transaction, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateNextOccurrence(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func newFakeRepo() *fakeRepo {
	userID := uuid.New()
	return &fakeRepo{
		accounts: []*repository.Account{
			{ID: uuid.New(), UserID: userID, Name: "ACC-001"},
			{ID: uuid.New(), UserID: userID, Name: "ACC-002"},
		},
		categories: []*repository.Category{
			{ID: uuid.New(), UserID: userID, Name: "groceries", Type: repository.CategoryTypeExpense},
			{ID: uuid.New(), UserID: userID, Name: "salary", Type: repository.CategoryTypeIncome},
		},
		failuresByTitle: make(map[string]int),
	}
}

func testConfig() config.ImportConfig {
	return config.ImportConfig{
		MaxUploadBytes:          5 * 1024 * 1024,
		MaxDataRows:             500,
		CommitRatePerSecond:     0, // no pacing in tests
		TransferAccountFallback: true,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, cfg config.ImportConfig) *ImportService {
	t.Helper()
	m := metrics.NewImportMetrics(prometheus.NewRegistry())
	return NewImportService(slog.New(slog.DiscardHandler), repo, cfg, m)
}

// prepare runs the pipeline up to the validation step.
func prepare(t *testing.T, svc *ImportService, csv string) (*session.Session, *reference.Snapshot) {
	t.Helper()
	ctx := context.Background()

	snap, err := svc.Snapshot(ctx, uuid.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Close() })

	sess := session.NewSession()
	require.NoError(t, svc.LoadCSV(ctx, sess, csv))
	require.NoError(t, svc.PrepareRows(ctx, sess, snap))
	return sess, snap
}

func TestImportScenarioExpense(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account_id,type,category,amount,description\n" +
		"2025-02-03,ACC-001,expense,groceries,45.50,Weekly shopping"

	sess, snap := prepare(t, svc, csv)

	rows := sess.Rows()
	require.Len(t, rows, 1)
	row := rows[0]
	assert.True(t, row.IsValid(), "errors: %v", row.Errors)
	assert.Equal(t, "45.50", row.Amount)
	assert.Equal(t, "2025-02-03", row.TransactionDate)
	assert.Equal(t, "ACC-001", row.Account)
	assert.Equal(t, "groceries", row.Category)
	assert.Equal(t, "Weekly shopping", row.Title)

	userID := uuid.New()
	summary, err := svc.Commit(context.Background(), sess, snap, userID)
	require.NoError(t, err)

	assert.Equal(t, &ImportSummary{Attempted: 1, Succeeded: 1}, summary)
	require.Len(t, repo.recorded, 1, "exactly one mutation for an expense row")

	tx := repo.recorded[0]
	assert.Equal(t, repository.TransactionTypeExpense, tx.Type)
	assert.Equal(t, int64(4550), tx.AmountMinor)
	assert.Equal(t, repo.accounts[0].ID, tx.AccountID)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, repo.categories[0].ID, *tx.CategoryID)
	assert.Equal(t, userID, tx.UserID)
	assert.Nil(t, tx.TransferGroupID)

	assert.Equal(t, session.StepSource, sess.Step(), "session resets after commit")
}

func TestImportTransferIssuesTwoLinkedMutations(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,from,to,type,amount\n" +
		"2025-02-03,ACC-001,ACC-002,transfer,500.00"

	sess, snap := prepare(t, svc, csv)
	require.Len(t, sess.Rows(), 1)
	require.True(t, sess.Rows()[0].IsValid(), "errors: %v", sess.Rows()[0].Errors)

	summary, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	require.Len(t, repo.recorded, 2)
	debit, credit := repo.recorded[0], repo.recorded[1]
	assert.Equal(t, repository.TransactionTypeTransferOut, debit.Type)
	assert.Equal(t, repository.TransactionTypeTransferIn, credit.Type)
	assert.Equal(t, repo.accounts[0].ID, debit.AccountID)
	assert.Equal(t, repo.accounts[1].ID, credit.AccountID)
	assert.Equal(t, debit.AmountMinor, credit.AmountMinor)
	assert.True(t, debit.TransactionDate.Equal(credit.TransactionDate))
	require.NotNil(t, debit.TransferGroupID)
	require.NotNil(t, credit.TransferGroupID)
	assert.Equal(t, *debit.TransferGroupID, *credit.TransferGroupID)
	assert.Nil(t, debit.CategoryID)
	assert.Nil(t, credit.CategoryID)
}

func TestImportTransferPrimaryAccountFallback(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,to,type,amount\n" +
		"2025-02-03,ACC-002,transfer,500.00"

	sess, snap := prepare(t, svc, csv)
	require.True(t, sess.Rows()[0].IsValid(), "errors: %v", sess.Rows()[0].Errors)

	summary, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	require.Len(t, repo.recorded, 2)
	assert.Equal(t, repo.accounts[0].ID, repo.recorded[0].AccountID,
		"blank from-leg falls back to the primary account")
}

func TestImportTransferFallbackDisabled(t *testing.T) {
	repo := newFakeRepo()
	cfg := testConfig()
	cfg.TransferAccountFallback = false
	svc := newTestService(t, repo, cfg)
	csv := "date,to,type,amount\n" +
		"2025-02-03,ACC-002,transfer,500.00"

	sess, snap := prepare(t, svc, csv)

	summary, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0].Message, "missing an account")
	assert.Empty(t, repo.recorded)
}

func TestImportPartialBatchFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account,type,category,amount,description\n" +
		"2025-02-03,ACC-001,expense,groceries,10.00,first\n" +
		"2025-02-04,ACC-001,expense,groceries,20.00,second\n" +
		"2025-02-05,ACC-001,expense,groceries,30.00,third"
	repo.failuresByTitle["second"] = -1 // fail forever

	sess, snap := prepare(t, svc, csv)
	require.Len(t, sess.Rows(), 3)

	summary, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 1, summary.Failures[0].RowIndex)

	// Row 3 was still attempted after row 2 failed.
	require.Len(t, repo.recorded, 2)
	assert.Equal(t, "third", repo.recorded[1].Title)
}

func TestImportCommitRetriesTransientFailures(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account,type,category,amount,description\n" +
		"2025-02-03,ACC-001,expense,groceries,10.00,flaky"
	repo.failuresByTitle["flaky"] = 2 // fails twice, succeeds on the third attempt

	sess, snap := prepare(t, svc, csv)

	summary, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Len(t, repo.recorded, 1)
}

func TestImportSkipsUncheckedAndInvalidRows(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account,type,category,amount,description\n" +
		"2025-02-03,ACC-001,expense,groceries,10.00,keep\n" +
		"2025-02-04,ACC-001,expense,groceries,20.00,excluded\n" +
		"2025-02-05,ACC-001,expense,nope,30.00,invalid"

	sess, snap := prepare(t, svc, csv)
	require.NoError(t, svc.SetRowChecked(sess, 1, false))
	require.False(t, sess.Rows()[2].IsValid())

	summary, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	require.Len(t, repo.recorded, 1)
	assert.Equal(t, "keep", repo.recorded[0].Title)
}

func TestImportEditRowRecomputesValidity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account,type,category,amount\n" +
		"2025-02-03,ACC-001,expense,grocerys,10.00"

	sess, snap := prepare(t, svc, csv)
	row := sess.Rows()[0]
	require.False(t, row.IsValid())

	require.NoError(t, svc.EditRow(sess, snap, 0, mapper.FieldCategory, "groceries"))
	assert.True(t, row.IsValid(), "errors: %v", row.Errors)

	require.NoError(t, svc.EditRow(sess, snap, 0, mapper.FieldAmount, "-1"))
	assert.False(t, row.IsValid())
}

func TestImportCommitStopsOnCancellation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account,type,category,amount\n" +
		"2025-02-03,ACC-001,expense,groceries,10.00\n" +
		"2025-02-04,ACC-001,expense,groceries,20.00"

	sess, snap := prepare(t, svc, csv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.Commit(ctx, sess, snap, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Attempted)
	assert.Empty(t, repo.recorded)
}

func TestImportSourceLimits(t *testing.T) {
	repo := newFakeRepo()
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	cfg.MaxDataRows = 2
	svc := newTestService(t, repo, cfg)
	sess := session.NewSession()

	t.Run("oversized upload", func(t *testing.T) {
		err := svc.LoadCSV(context.Background(), sess, strings.Repeat("a,b,c\n", 100))
		assert.ErrorIs(t, err, ErrSourceTooLarge)
	})

	t.Run("too many rows", func(t *testing.T) {
		err := svc.LoadCSV(context.Background(), sess, "a,b\n1,2\n3,4\n5,6")
		assert.ErrorIs(t, err, ErrTooManyRows)
		assert.Equal(t, session.StepSource, sess.Step(), "session resets on limit breach")
	})
}

func TestImportRecurringRowSchedulesNextOccurrence(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, testConfig())
	csv := "date,account,type,category,amount,frequency,description\n" +
		"2025-02-03,ACC-001,expense,groceries,10.00,monthly,rent-ish"

	sess, snap := prepare(t, svc, csv)
	require.True(t, sess.Rows()[0].IsValid(), "errors: %v", sess.Rows()[0].Errors)

	_, err := svc.Commit(context.Background(), sess, snap, uuid.New())
	require.NoError(t, err)

	require.Len(t, repo.recorded, 1)
	tx := repo.recorded[0]
	assert.Equal(t, repository.FrequencyMonthly, tx.Frequency)
	require.NotNil(t, tx.NextOccurrence)
	assert.True(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC).Equal(*tx.NextOccurrence))
}
