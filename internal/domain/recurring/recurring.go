// Package recurring materializes due recurring transactions: for every
// template whose next occurrence has arrived, it records a concrete
// transaction and advances the schedule.
package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
)

// NextAfter returns the occurrence following t for the given cadence.
// FrequencyNone returns t unchanged.
func NextAfter(t time.Time, f repository.Frequency) time.Time {
	switch f {
	case repository.FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case repository.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case repository.FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	case repository.FrequencyYearly:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// Service runs the materialization pass.
type Service struct {
	logger *slog.Logger
	repo   repository.FinanceRepository
}

func NewService(logger *slog.Logger, repo repository.FinanceRepository) *Service {
	return &Service{logger: logger, repo: repo}
}

// MaterializeDue records one concrete transaction for every due template and
// advances each template's next occurrence. Failures are isolated per
// template; the pass continues and reports how many occurrences it recorded.
func (s *Service) MaterializeDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.ListDueRecurring(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list due recurring transactions: %w", err)
	}

	recorded := 0
	for _, template := range due {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		if template.NextOccurrence == nil {
			continue
		}

		occurrence := &repository.Transaction{
			UserID:          template.UserID,
			AccountID:       template.AccountID,
			CategoryID:      template.CategoryID,
			TransferGroupID: template.TransferGroupID,
			Type:            template.Type,
			Title:           template.Title,
			AmountMinor:     template.AmountMinor,
			TransactionDate: *template.NextOccurrence,
			Frequency:       repository.FrequencyNone,
			Notes:           template.Notes,
		}

		if err := s.repo.RecordTransaction(ctx, occurrence); err != nil {
			s.logger.Warn("failed to materialize recurring transaction",
				"template", template.ID, "error", err)
			continue
		}

		next := NextAfter(*template.NextOccurrence, template.Frequency)
		if err := s.repo.UpdateNextOccurrence(ctx, template.ID, next); err != nil {
			s.logger.Error("failed to advance recurring schedule",
				"template", template.ID, "error", err)
			continue
		}
		recorded++
	}

	s.logger.Info("recurring pass complete", "due", len(due), "recorded", recorded)
	return recorded, nil
}
