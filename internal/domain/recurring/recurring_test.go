package recurring

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
)

type fakeRepo struct {
	due          []*repository.Transaction
	recorded     []*repository.Transaction
	nextByID     map[uuid.UUID]time.Time
	failRecordOn string // title that triggers a record failure
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextByID: make(map[uuid.UUID]time.Time)}
}

func (f *fakeRepo) ListAccounts(context.Context, uuid.UUID) ([]*repository.Account, error) {
	return nil, nil
}

func (f *fakeRepo) ListCategories(context.Context, uuid.UUID) ([]*repository.Category, error) {
	return nil, nil
}

func (f *fakeRepo) RecordTransaction(_ context.Context, tx *repository.Transaction) error {
	if f.failRecordOn != "" && tx.Title == f.failRecordOn {
		return errors.New("record failed")
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
	return f.due, nil
}

func (f *fakeRepo) UpdateNextOccurrence(_ context.Context, id uuid.UUID, next time.Time) error {
	f.nextByID[id] = next
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNextAfter(t *testing.T) {
	base := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		freq repository.Frequency
		want time.Time
	}{
		{repository.FrequencyDaily, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{repository.FrequencyWeekly, time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC)},
		{repository.FrequencyMonthly, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)}, // Jan 31 + 1 month normalizes
		{repository.FrequencyYearly, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{repository.FrequencyNone, base},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextAfter(base, tt.freq)))
		})
	}
}

func TestMaterializeDue(t *testing.T) {
	repo := newFakeRepo()
	due := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	templateID := uuid.New()
	repo.due = []*repository.Transaction{{
		ID:              templateID,
		UserID:          uuid.New(),
		AccountID:       uuid.New(),
		Type:            repository.TransactionTypeExpense,
		Title:           "Rent",
		AmountMinor:     120000,
		Frequency:       repository.FrequencyMonthly,
		NextOccurrence:  &due,
		TransactionDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	svc := NewService(testLogger(), repo)
	recorded, err := svc.MaterializeDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, recorded)

	require.Len(t, repo.recorded, 1)
	occurrence := repo.recorded[0]
	assert.Equal(t, repository.FrequencyNone, occurrence.Frequency)
	assert.True(t, due.Equal(occurrence.TransactionDate))
	assert.Equal(t, int64(120000), occurrence.AmountMinor)

	next, ok := repo.nextByID[templateID]
	require.True(t, ok)
	assert.True(t, due.AddDate(0, 1, 0).Equal(next))
}

func TestMaterializeDueIsolatesFailures(t *testing.T) {
	repo := newFakeRepo()
	due := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mk := func(title string) *repository.Transaction {
		return &repository.Transaction{
			ID:             uuid.New(),
			UserID:         uuid.New(),
			AccountID:      uuid.New(),
			Type:           repository.TransactionTypeExpense,
			Title:          title,
			AmountMinor:    1000,
			Frequency:      repository.FrequencyDaily,
			NextOccurrence: &due,
		}
	}
	repo.due = []*repository.Transaction{mk("a"), mk("b"), mk("c")}
	repo.failRecordOn = "b"

	svc := NewService(testLogger(), repo)
	recorded, err := svc.MaterializeDue(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, recorded)
	assert.Len(t, repo.recorded, 2)
	assert.Len(t, repo.nextByID, 2, "failed template's schedule is not advanced")
}
