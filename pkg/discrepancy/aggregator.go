// Package discrepancy aggregates per-counterparty totals across both
// ledger sources.
package discrepancy

import (
	"github.com/shopspring/decimal"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
	"github.com/mgiordano/cotejo/pkg/store"
)

// Summary caps an aggregation pass
type Summary struct {
	Providers       []models.ProviderAggregate `json:"proveedores"`
	ProvidersFound  int                        `json:"proveedores_encontrados"`
	TotalDifference decimal.Decimal            `json:"diferencia_total"`
}

// Aggregate folds every record into per-counterparty totals keyed by the
// normalized identifier. Records with an empty identifier are skipped.
// Counterparties appear in first-seen order, tax side walked before the
// books-only remainder, and the display name comes from the first record
// seen for the identifier.
func Aggregate(st *store.Store, mapping models.ColumnMapping) []models.ProviderAggregate {
	byID := make(map[string]*models.ProviderAggregate)
	var order []string

	fold := func(source models.Source) {
		idColumn := mapping.IDColumn(source)
		amountColumn := mapping.AmountColumn(source)
		for _, rec := range st.Records(source) {
			key := normalize.RecordKey(rec.Fields, idColumn, amountColumn)
			if key.ID == "" {
				continue
			}

			agg, ok := byID[key.ID]
			if !ok {
				agg = &models.ProviderAggregate{
					CUIT:        key.ID,
					DisplayName: normalize.DisplayName(rec.Fields),
					TotalTax:    decimal.Zero,
					TotalBooks:  decimal.Zero,
				}
				byID[key.ID] = agg
				order = append(order, key.ID)
			}

			if source == models.SourceTax {
				agg.TotalTax = agg.TotalTax.Add(key.Amount)
			} else {
				agg.TotalBooks = agg.TotalBooks.Add(key.Amount)
			}
		}
	}

	fold(models.SourceTax)
	fold(models.SourceBooks)

	providers := make([]models.ProviderAggregate, 0, len(order))
	for _, id := range order {
		agg := byID[id]
		agg.Difference = agg.TotalTax.Sub(agg.TotalBooks)
		providers = append(providers, *agg)
	}
	return providers
}

// FilterByMinDifference keeps counterparties whose absolute difference
// meets the threshold. A zero threshold keeps everyone.
func FilterByMinDifference(providers []models.ProviderAggregate, min decimal.Decimal) []models.ProviderAggregate {
	if min.LessThanOrEqual(decimal.Zero) {
		return providers
	}
	filtered := make([]models.ProviderAggregate, 0, len(providers))
	for _, p := range providers {
		if p.Difference.Abs().GreaterThanOrEqual(min) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// Summarize aggregates, filters and totals in one pass for the API surface
func Summarize(st *store.Store, mapping models.ColumnMapping, minDifference decimal.Decimal) Summary {
	providers := FilterByMinDifference(Aggregate(st, mapping), minDifference)

	total := decimal.Zero
	for _, p := range providers {
		total = total.Add(p.Difference)
	}

	return Summary{
		Providers:       providers,
		ProvidersFound:  len(providers),
		TotalDifference: total,
	}
}
