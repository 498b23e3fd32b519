package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
	"github.com/mgiordano/cotejo/pkg/store"
)

// Summary aggregates the tax-side totals shown after every engine pass
type Summary struct {
	TotalTax        decimal.Decimal `json:"total_arca"`
	TotalReconciled decimal.Decimal `json:"total_conciliado"`
	TotalPending    decimal.Decimal `json:"total_pendiente"`

	CountTax        int `json:"registros_arca"`
	CountReconciled int `json:"registros_conciliados"`
	CountPending    int `json:"registros_pendientes"`
}

// Summarize walks the tax-side records and splits their amounts by
// reconciliation state. Books-side records never enter the totals; the
// tax extract is the ledger being worked down.
func Summarize(st *store.Store, mapping models.ColumnMapping) Summary {
	summary := Summary{
		TotalTax:        decimal.Zero,
		TotalReconciled: decimal.Zero,
		TotalPending:    decimal.Zero,
	}

	for _, rec := range st.Records(models.SourceTax) {
		key := normalize.RecordKey(rec.Fields, "", mapping.TaxAmountColumn)
		summary.TotalTax = summary.TotalTax.Add(key.Amount)
		summary.CountTax++

		if rec.Status.IsReconciled() {
			summary.TotalReconciled = summary.TotalReconciled.Add(key.Amount)
			summary.CountReconciled++
		} else {
			summary.TotalPending = summary.TotalPending.Add(key.Amount)
			summary.CountPending++
		}
	}

	return summary
}
