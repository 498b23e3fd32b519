package models

// Source identifies which ledger a record came from
type Source string

const (
	SourceTax   Source = "ARCA"         // tax-authority withholding extract
	SourceBooks Source = "Contabilidad" // internal accounting extract
)

// RecordStatus is the reconciliation state of a single record
type RecordStatus string

const (
	StatusPending            RecordStatus = "Pendiente"
	StatusReconciled         RecordStatus = "Conciliado"
	StatusReconciledWithDiff RecordStatus = "Conciliado con Diferencia"
)

// IsReconciled reports whether the status is either reconciled variant
func (s RecordStatus) IsReconciled() bool {
	return s == StatusReconciled || s == StatusReconciledWithDiff
}

// Record is one row from one source ledger. OriginalIndex is the record's
// identity within its source collection, assigned once at ingestion and
// never reused; lookups go through it, never through slice position.
// Fields are immutable after ingestion; only Status, MatchID and Comment
// change afterwards.
type Record struct {
	OriginalIndex int          `json:"original_index"`
	Source        Source       `json:"source"`
	Fields        Row          `json:"fields"`
	Status        RecordStatus `json:"status"`
	MatchID       string       `json:"match_id,omitempty"`
	Comment       string       `json:"comment,omitempty"`
}
