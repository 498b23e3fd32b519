// Package record persists the record snapshots of saved reconciliations
package record

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/mgiordano/cotejo/internal/database"
	"github.com/mgiordano/cotejo/internal/tracing"
	"github.com/mgiordano/cotejo/pkg/models"
)

// RecordRepository defines the interface for record snapshot operations
type RecordRepository interface {
	ReplaceForReconciliation(ctx context.Context, reconciliationID string, records []models.StoredRecord) error
	ListByReconciliation(ctx context.Context, reconciliationID string) ([]models.StoredRecord, error)
}

// Repository implements RecordRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "reconciliation_records"

const insertBatchSize = 500

// ReplaceForReconciliation swaps a reconciliation's snapshot for the given
// records in one transaction. A save is always a full overwrite; partial
// snapshots would desync match groups.
func (r *Repository) ReplaceForReconciliation(ctx context.Context, reconciliationID string, records []models.StoredRecord) error {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.ReplaceForReconciliation")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tableName)
	db.Where(db.Equal("reconciliation_id", reconciliationID))

	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to clear reconciliation records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear reconciliation records")
	}

	now := time.Now()
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		sb := database.NewInsertBuilder()
		sb.InsertInto(tableName)
		sb.Cols("id", "reconciliation_id", "seq", "source", "status", "match_id", "payload", "created_at")
		for i, rec := range records[start:end] {
			sb.Values(
				uuid.New().String(), reconciliationID, start+i,
				string(rec.Source), string(rec.Status), rec.MatchID, rec.Payload, now,
			)
		}

		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to insert reconciliation records")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert reconciliation records")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"reconciliation_id": reconciliationID,
		"records":           len(records),
	}).Info("replaced reconciliation records")

	return nil
}

// ListByReconciliation loads a reconciliation's snapshot in insert order
func (r *Repository) ListByReconciliation(ctx context.Context, reconciliationID string) ([]models.StoredRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "RecordRepository.ListByReconciliation")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "reconciliation_id", "seq", "source", "status", "match_id", "payload", "created_at")
	sb.From(tableName)
	sb.Where(sb.Equal("reconciliation_id", reconciliationID))
	sb.OrderBy("seq ASC")

	query, args := sb.Build()

	var items []models.StoredRecord
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list reconciliation records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reconciliation records")
	}

	return items, nil
}
