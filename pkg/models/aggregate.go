package models

import (
	"github.com/shopspring/decimal"
)

// DisplayNameUnavailable is the sentinel used when no counterparty-name
// column can be resolved from a record.
const DisplayNameUnavailable = "N/A"

// ProviderAggregate is the per-counterparty totals across both sources,
// independent of reconciliation status.
type ProviderAggregate struct {
	CUIT        string          `json:"cuit"`
	DisplayName string          `json:"razon_social"`
	TotalTax    decimal.Decimal `json:"total_arca"`
	TotalBooks  decimal.Decimal `json:"total_contabilidad"`
	Difference  decimal.Decimal `json:"diferencia"`
}

// ManualSelectionRequest carries the operator's current checkbox state.
// Indices are originalIndex values, not slice positions.
type ManualSelectionRequest struct {
	PendingTax     []int `json:"pending_arca"`
	ReconciledTax  []int `json:"reconciled_arca"`
	UnmatchedBooks []int `json:"unmatched_contabilidad"`
}
