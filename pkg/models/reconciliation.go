package models

import (
	"encoding/json"
	"time"

	"github.com/mgiordano/cotejo/internal/database"
)

// Reconciliation lifecycle labels. The label is presentation state; the
// engine never reads it.
const (
	ReconciliationStatusDraft     = "Borrador"
	ReconciliationStatusInReview  = "En Revisión"
	ReconciliationStatusFinalized = "Finalizada"
)

// ColumnMapping names the identifier and amount columns for each source.
// The caller confirms these before any matching runs; defaults are only
// heuristic preselections.
type ColumnMapping struct {
	TaxIDColumn       string `json:"cuit_arca_col" validate:"required"`
	TaxAmountColumn   string `json:"monto_arca_col" validate:"required"`
	BooksIDColumn     string `json:"cuit_cont_col" validate:"required"`
	BooksAmountColumn string `json:"monto_cont_col" validate:"required"`
}

// IDColumn returns the identifier column for a source
func (m ColumnMapping) IDColumn(source Source) string {
	if source == SourceBooks {
		return m.BooksIDColumn
	}
	return m.TaxIDColumn
}

// AmountColumn returns the amount column for a source
func (m ColumnMapping) AmountColumn(source Source) string {
	if source == SourceBooks {
		return m.BooksAmountColumn
	}
	return m.TaxAmountColumn
}

// Reconciliation is a saved reconciliation session
type Reconciliation struct {
	ID                string          `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Status            string          `json:"status" db:"status"`
	TaxIDColumn       string          `json:"cuit_arca_col" db:"cuit_arca_col"`
	TaxAmountColumn   string          `json:"monto_arca_col" db:"monto_arca_col"`
	BooksIDColumn     string          `json:"cuit_cont_col" db:"cuit_cont_col"`
	BooksAmountColumn string          `json:"monto_cont_col" db:"monto_cont_col"`
	ColumnVisibility  json.RawMessage `json:"column_visibility,omitempty" db:"column_visibility"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Mapping returns the session's column mapping
func (r Reconciliation) Mapping() ColumnMapping {
	return ColumnMapping{
		TaxIDColumn:       r.TaxIDColumn,
		TaxAmountColumn:   r.TaxAmountColumn,
		BooksIDColumn:     r.BooksIDColumn,
		BooksAmountColumn: r.BooksAmountColumn,
	}
}

// SetMapping stores the column mapping on the session
func (r *Reconciliation) SetMapping(m ColumnMapping) {
	r.TaxIDColumn = m.TaxIDColumn
	r.TaxAmountColumn = m.TaxAmountColumn
	r.BooksIDColumn = m.BooksIDColumn
	r.BooksAmountColumn = m.BooksAmountColumn
}

// StoredRecord is the persisted form of a Record. The full row (fields,
// original index, comment) travels as a JSONB payload; source, status and
// match id are lifted into columns for querying.
type StoredRecord struct {
	ID               string                 `json:"id" db:"id"`
	ReconciliationID string                 `json:"reconciliation_id" db:"reconciliation_id"`
	Seq              int                    `json:"seq" db:"seq"`
	Source           Source                 `json:"source" db:"source"`
	Status           RecordStatus           `json:"status" db:"status"`
	MatchID          *string                `json:"match_id,omitempty" db:"match_id"`
	Payload          database.JSONB[Record] `json:"payload" db:"payload"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
}

// ToStoredRecord wraps a record for persistence
func ToStoredRecord(reconciliationID string, rec *Record) StoredRecord {
	sr := StoredRecord{
		ReconciliationID: reconciliationID,
		Source:           rec.Source,
		Status:           rec.Status,
		Payload:          database.JSONB[Record]{Data: *rec},
	}
	if rec.MatchID != "" {
		matchID := rec.MatchID
		sr.MatchID = &matchID
	}
	return sr
}

// ToRecord unwraps a persisted record
func (sr StoredRecord) ToRecord() Record {
	return sr.Payload.Data
}
