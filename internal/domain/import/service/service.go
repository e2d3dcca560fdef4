// Package service orchestrates the bulk-import flow: load source, prepare
// and validate rows, apply user corrections, and commit the selected rows as
// balance-adjusting transactions.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/mapper"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/normalizer"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/reference"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/session"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/tokenizer"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/import/validator"
	"github.com/cyberhive54/EZfinance-sub001/internal/domain/recurring"
	"github.com/cyberhive54/EZfinance-sub001/pkg/config"
	"github.com/cyberhive54/EZfinance-sub001/pkg/metrics"
	"github.com/cyberhive54/EZfinance-sub001/pkg/money"
)

// commitAttempts bounds the retry of a single transaction mutation. The
// repository call is atomic, so a retry can never double-apply a balance
// delta.
const commitAttempts = 3

var (
	ErrSourceTooLarge = errors.New("source exceeds the maximum upload size")
	ErrTooManyRows    = errors.New("source exceeds the maximum data row count")
)

// Failure records why one row did not commit.
type Failure struct {
	RowIndex int
	Message  string
}

// ImportSummary is the aggregate result of one commit. It is built once and
// never mutated afterwards.
type ImportSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Failures  []Failure
}

// ImportService drives the import pipeline against the finance repository.
type ImportService struct {
	logger  *slog.Logger
	repo    repository.FinanceRepository
	cfg     config.ImportConfig
	metrics *metrics.ImportMetrics
	tracer  trace.Tracer
}

// NewImportService creates the import orchestrator.
func NewImportService(logger *slog.Logger, repo repository.FinanceRepository, cfg config.ImportConfig, m *metrics.ImportMetrics) *ImportService {
	return &ImportService{
		logger:  logger,
		repo:    repo,
		cfg:     cfg,
		metrics: m,
		tracer:  otel.Tracer("import"),
	}
}

// Snapshot reads the reference data exactly once for an import session.
func (s *ImportService) Snapshot(ctx context.Context, userID uuid.UUID) (*reference.Snapshot, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	categories, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return reference.NewSnapshot(accounts, categories)
}

// LoadCSV tokenizes pasted or uploaded CSV text into the session.
func (s *ImportService) LoadCSV(ctx context.Context, sess *session.Session, raw string) error {
	_, span := s.tracer.Start(ctx, "import.parse")
	defer span.End()

	if int64(len(raw)) > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrSourceTooLarge, len(raw), s.cfg.MaxUploadBytes)
	}

	rows, err := tokenizer.Tokenize(raw)
	if err != nil {
		return err
	}
	return s.loadRows(sess, span, rows)
}

// LoadWorkbook reads the first sheet of an uploaded XLSX file into the
// session.
func (s *ImportService) LoadWorkbook(ctx context.Context, sess *session.Session, data []byte) error {
	_, span := s.tracer.Start(ctx, "import.parse")
	defer span.End()

	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrSourceTooLarge, len(data), s.cfg.MaxUploadBytes)
	}

	rows, err := tokenizer.TokenizeWorkbook(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return s.loadRows(sess, span, rows)
}

func (s *ImportService) loadRows(sess *session.Session, span trace.Span, rows [][]string) error {
	if err := sess.LoadSource(rows); err != nil {
		return err
	}

	dataRows := len(sess.DataRows())
	if dataRows > s.cfg.MaxDataRows {
		sess.Reset()
		return fmt.Errorf("%w: %d rows (limit %d)", ErrTooManyRows, dataRows, s.cfg.MaxDataRows)
	}

	s.metrics.RowsParsed.Add(float64(dataRows))
	span.SetAttributes(attribute.Int("import.rows", dataRows))
	s.logger.Info("import source loaded", "rows", dataRows, "header", sess.HasHeader())
	return nil
}

// PrepareRows maps, normalizes and validates every data row, then moves the
// session to the validation step (locking the mapping).
func (s *ImportService) PrepareRows(ctx context.Context, sess *session.Session, snap *reference.Snapshot) error {
	if sess.Step() == session.StepPreview {
		if err := sess.ConfirmPreview(); err != nil {
			return err
		}
	}

	_, span := s.tracer.Start(ctx, "import.prepare")
	defer span.End()

	mapping := sess.Mapping()
	data := sess.DataRows()
	rows := make([]*session.Row, 0, len(data))
	valid := 0
	for i, raw := range data {
		row := session.NewRow(i, mapping.Apply(raw))
		normalizer.Normalize(row, snap)
		row.Errors = validator.Validate(row, snap)
		if row.IsValid() {
			valid++
		}
		rows = append(rows, row)
	}

	if err := sess.BeginValidation(rows); err != nil {
		return err
	}

	s.metrics.RowsValidated.WithLabelValues("valid").Add(float64(valid))
	s.metrics.RowsValidated.WithLabelValues("invalid").Add(float64(len(rows) - valid))
	span.SetAttributes(attribute.Int("import.valid", valid), attribute.Int("import.invalid", len(rows)-valid))
	s.logger.Info("import rows prepared", "total", len(rows), "valid", valid)
	return nil
}

// EditRow applies a user correction to one field, then re-normalizes and
// re-validates the row so its validity flag stays truthful.
func (s *ImportService) EditRow(sess *session.Session, snap *reference.Snapshot, index int, field mapper.Field, value string) error {
	if sess.Step() != session.StepValidation {
		return fmt.Errorf("%w: row edit during %s", session.ErrInvalidStep, sess.Step())
	}
	row, err := sess.Row(index)
	if err != nil {
		return err
	}

	row.SetField(field, value)
	normalizer.Normalize(row, snap)
	row.Errors = validator.Validate(row, snap)
	return nil
}

// SetRowChecked includes or excludes a row from the commit.
func (s *ImportService) SetRowChecked(sess *session.Session, index int, checked bool) error {
	row, err := sess.Row(index)
	if err != nil {
		return err
	}
	row.Checked = checked
	return nil
}

// Commit translates every checked, valid row into domain mutations, one row
// at a time. Row failures are isolated and recorded in the summary; the
// batch never stops early except on context cancellation, which returns the
// partial summary alongside the context error. On completion the session is
// reset and the caller re-syncs any cached views.
func (s *ImportService) Commit(ctx context.Context, sess *session.Session, snap *reference.Snapshot, userID uuid.UUID) (*ImportSummary, error) {
	if sess.Step() != session.StepValidation {
		return nil, fmt.Errorf("%w: commit during %s", session.ErrInvalidStep, sess.Step())
	}

	ctx, span := s.tracer.Start(ctx, "import.commit")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.CommitDuration.Observe(time.Since(start).Seconds())
	}()

	var limiter *rate.Limiter
	if s.cfg.CommitRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.CommitRatePerSecond), 1)
	}

	summary := &ImportSummary{}
	for _, row := range sess.Rows() {
		if !row.Checked || !row.IsValid() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("commit stopped after %d rows: %w", summary.Attempted, err)
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return summary, fmt.Errorf("commit stopped after %d rows: %w", summary.Attempted, err)
			}
		}

		summary.Attempted++
		if err := s.commitRow(ctx, userID, row, snap); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{RowIndex: row.Index, Message: err.Error()})
			s.metrics.RowsCommitted.WithLabelValues("failed").Inc()
			s.logger.Warn("import row failed", "row", row.Index, "error", err)
			continue
		}
		summary.Succeeded++
		s.metrics.RowsCommitted.WithLabelValues("succeeded").Inc()
	}

	span.SetAttributes(
		attribute.Int("import.attempted", summary.Attempted),
		attribute.Int("import.succeeded", summary.Succeeded),
		attribute.Int("import.failed", summary.Failed),
	)
	s.logger.Info("import commit finished",
		"attempted", summary.Attempted, "succeeded", summary.Succeeded, "failed", summary.Failed)

	if err := sess.Complete(); err != nil {
		return summary, err
	}
	sess.Reset()
	return summary, nil
}

func (s *ImportService) commitRow(ctx context.Context, userID uuid.UUID, row *session.Row, snap *reference.Snapshot) error {
	amountMinor, err := money.MinorUnits(row.Amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", row.Amount, err)
	}

	date, err := normalizer.ParseDate(row.TransactionDate)
	if err != nil {
		return fmt.Errorf("date %q: %w", row.TransactionDate, err)
	}

	freq := repository.Frequency(row.Frequency)
	if freq == "" {
		freq = repository.FrequencyNone
	}
	var next *time.Time
	if freq != repository.FrequencyNone {
		n := recurring.NextAfter(date, freq)
		next = &n
	}

	if row.Type == "transfer" {
		return s.commitTransfer(ctx, userID, row, snap, amountMinor, date, freq, next)
	}
	return s.commitSingle(ctx, userID, row, snap, amountMinor, date, freq, next)
}

func (s *ImportService) commitSingle(ctx context.Context, userID uuid.UUID, row *session.Row, snap *reference.Snapshot, amountMinor int64, date time.Time, freq repository.Frequency, next *time.Time) error {
	accountID, ok := snap.AccountID(row.Account)
	if !ok {
		return fmt.Errorf("account %q not found", row.Account)
	}
	categoryID, ok := snap.CategoryID(row.Type, row.Category)
	if !ok {
		return fmt.Errorf("%s category %q not found", row.Type, row.Category)
	}

	txType := repository.TransactionTypeExpense
	if row.Type == "income" {
		txType = repository.TransactionTypeIncome
	}

	title := strings.TrimSpace(row.Title)
	if title == "" {
		title = row.Category
	}

	return s.record(ctx, &repository.Transaction{
		UserID:          userID,
		AccountID:       accountID,
		CategoryID:      &categoryID,
		Type:            txType,
		Title:           title,
		AmountMinor:     amountMinor,
		TransactionDate: date,
		Frequency:       freq,
		NextOccurrence:  next,
		Notes:           notesPtr(row.Notes),
	})
}

// commitTransfer issues the two linked mutations of a transfer: a debit
// against the source account and a credit against the destination, sharing
// one transfer group ID and no category.
func (s *ImportService) commitTransfer(ctx context.Context, userID uuid.UUID, row *session.Row, snap *reference.Snapshot, amountMinor int64, date time.Time, freq repository.Frequency, next *time.Time) error {
	from := strings.TrimSpace(row.FromAccount)
	to := strings.TrimSpace(row.ToAccount)

	// Validation already rejects this; defend in depth anyway.
	if from == "" && to == "" {
		return errors.New("transfer names no accounts")
	}

	if from == "" || to == "" {
		if !s.cfg.TransferAccountFallback {
			return errors.New("transfer is missing an account")
		}
		primary := snap.PrimaryAccount()
		if primary == nil {
			return errors.New("no primary account available for transfer fallback")
		}
		if from == "" {
			from = primary.Name
		}
		if to == "" {
			to = primary.Name
		}
	}

	fromID, ok := snap.AccountID(from)
	if !ok {
		return fmt.Errorf("account %q not found", from)
	}
	toID, ok := snap.AccountID(to)
	if !ok {
		return fmt.Errorf("account %q not found", to)
	}

	title := strings.TrimSpace(row.Title)
	if title == "" {
		title = "Transfer"
	}

	groupID := uuid.New()
	debit := &repository.Transaction{
		UserID:          userID,
		AccountID:       fromID,
		TransferGroupID: &groupID,
		Type:            repository.TransactionTypeTransferOut,
		Title:           title,
		AmountMinor:     amountMinor,
		TransactionDate: date,
		Frequency:       freq,
		NextOccurrence:  next,
		Notes:           notesPtr(row.Notes),
	}
	if err := s.record(ctx, debit); err != nil {
		return fmt.Errorf("transfer debit: %w", err)
	}

	credit := &repository.Transaction{
		UserID:          userID,
		AccountID:       toID,
		TransferGroupID: &groupID,
		Type:            repository.TransactionTypeTransferIn,
		Title:           title,
		AmountMinor:     amountMinor,
		TransactionDate: date,
		Frequency:       freq,
		NextOccurrence:  next,
		Notes:           notesPtr(row.Notes),
	}
	if err := s.record(ctx, credit); err != nil {
		return fmt.Errorf("transfer credit (debit already applied): %w", err)
	}
	return nil
}

// record persists one transaction with bounded retry. Rows are never
// reordered: the retry loop completes or gives up before the next row
// starts.
func (s *ImportService) record(ctx context.Context, tx *repository.Transaction) error {
	var err error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		if err = s.repo.RecordTransaction(ctx, tx); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == commitAttempts {
			break
		}
		s.logger.Warn("retrying transaction", "attempt", attempt, "error", err)
	}
	return err
}

func notesPtr(notes string) *string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	return &notes
}
