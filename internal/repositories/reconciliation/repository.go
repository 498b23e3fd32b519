// Package reconciliation persists saved reconciliation sessions
package reconciliation

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/mgiordano/cotejo/internal/database"
	"github.com/mgiordano/cotejo/internal/tracing"
	"github.com/mgiordano/cotejo/pkg/models"
)

// ReconciliationRepository defines the interface for saved session operations
type ReconciliationRepository interface {
	Create(ctx context.Context, name string, mapping models.ColumnMapping, visibility json.RawMessage) (*models.Reconciliation, error)
	GetByID(ctx context.Context, id string) (*models.Reconciliation, error)
	List(ctx context.Context) ([]models.Reconciliation, error)
	Update(ctx context.Context, id string, status string, mapping models.ColumnMapping, visibility json.RawMessage) (*models.Reconciliation, error)
	Rename(ctx context.Context, id string, name string) (*models.Reconciliation, error)
	Delete(ctx context.Context, id string) error
}

// Repository implements ReconciliationRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reconciliation repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "reconciliations"

var columns = []string{
	"id", "name", "status",
	"cuit_arca_col", "monto_arca_col", "cuit_cont_col", "monto_cont_col",
	"column_visibility", "created_at", "updated_at",
}

// Create saves a new reconciliation in draft state
func (r *Repository) Create(ctx context.Context, name string, mapping models.ColumnMapping, visibility json.RawMessage) (*models.Reconciliation, error) {
	ctx, span := tracing.StartSpan(ctx, "ReconciliationRepository.Create")
	defer span.End()

	now := time.Now()
	id := uuid.New().String()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		id, name, models.ReconciliationStatusDraft,
		mapping.TaxIDColumn, mapping.TaxAmountColumn, mapping.BooksIDColumn, mapping.BooksAmountColumn,
		nullableJSON(visibility), now, now,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create reconciliation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create reconciliation")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":   id,
		"name": name,
	}).Info("created reconciliation")

	return r.GetByID(ctx, id)
}

// GetByID gets a saved reconciliation by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Reconciliation, error) {
	ctx, span := tracing.StartSpan(ctx, "ReconciliationRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var rec models.Reconciliation
	err := r.db.GetContext(ctx, &rec, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get reconciliation by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconciliation")
	}

	return &rec, nil
}

// List lists saved reconciliations, most recently updated first
func (r *Repository) List(ctx context.Context) ([]models.Reconciliation, error) {
	ctx, span := tracing.StartSpan(ctx, "ReconciliationRepository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("updated_at DESC")

	query, args := sb.Build()

	var items []models.Reconciliation
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list reconciliations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reconciliations")
	}

	return items, nil
}

// Update overwrites a saved reconciliation's state, mapping and visibility
func (r *Repository) Update(ctx context.Context, id string, status string, mapping models.ColumnMapping, visibility json.RawMessage) (*models.Reconciliation, error) {
	ctx, span := tracing.StartSpan(ctx, "ReconciliationRepository.Update")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("cuit_arca_col", mapping.TaxIDColumn),
		sb.Assign("monto_arca_col", mapping.TaxAmountColumn),
		sb.Assign("cuit_cont_col", mapping.BooksIDColumn),
		sb.Assign("monto_cont_col", mapping.BooksAmountColumn),
		sb.Assign("column_visibility", nullableJSON(visibility)),
		sb.Assign("updated_at", time.Now()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update reconciliation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update reconciliation")
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("updated reconciliation")

	return r.GetByID(ctx, id)
}

// Rename changes a saved reconciliation's name
func (r *Repository) Rename(ctx context.Context, id string, name string) (*models.Reconciliation, error) {
	ctx, span := tracing.StartSpan(ctx, "ReconciliationRepository.Rename")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("name", name),
		sb.Assign("updated_at", time.Now()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to rename reconciliation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to rename reconciliation")
	}

	return r.GetByID(ctx, id)
}

// Delete removes a saved reconciliation and, through the FK cascade, its
// records.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ReconciliationRepository.Delete")
	defer span.End()

	sb := database.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete reconciliation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete reconciliation")
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("deleted reconciliation")

	return nil
}

// nullableJSON keeps empty visibility as SQL NULL instead of an empty string
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
