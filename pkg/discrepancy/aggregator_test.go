package discrepancy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/store"
)

var mapping = models.ColumnMapping{
	TaxIDColumn:       "CUIT",
	TaxAmountColumn:   "Monto Retenido",
	BooksIDColumn:     "CUIT",
	BooksAmountColumn: "Monto",
}

func taxRow(cuit, name string, amount float64) models.Row {
	row := models.NewRow()
	row.Set("CUIT", models.StringField(cuit))
	row.Set("Razón Social", models.StringField(name))
	row.Set("Monto Retenido", models.NumberField(amount))
	return row
}

func booksRow(cuit string, amount float64) models.Row {
	row := models.NewRow()
	row.Set("CUIT", models.StringField(cuit))
	row.Set("Monto", models.NumberField(amount))
	return row
}

func seededStore() *store.Store {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{
		taxRow("20-11111111-2", "ACME SRL", 500),
		taxRow("20-11111111-2", "ACME S.R.L.", 300),
		taxRow("27-22222222-5", "Proveedor SA", 100),
		taxRow("", "Sin CUIT", 999),
	})
	st.Ingest(models.SourceBooks, []models.Row{
		booksRow("20111111112", 750),
		booksRow("30-33333333-4", 60),
	})
	return st
}

func TestAggregateSumsBothSidesPerCounterparty(t *testing.T) {
	providers := Aggregate(seededStore(), mapping)

	require.Len(t, providers, 3)

	acme := providers[0]
	assert.Equal(t, "20111111112", acme.CUIT)
	assert.Equal(t, "ACME SRL", acme.DisplayName)
	assert.True(t, acme.TotalTax.Equal(decimal.NewFromInt(800)))
	assert.True(t, acme.TotalBooks.Equal(decimal.NewFromInt(750)))
	assert.True(t, acme.Difference.Equal(decimal.NewFromInt(50)))
}

func TestAggregateOrderingIsFirstSeenTaxFirst(t *testing.T) {
	providers := Aggregate(seededStore(), mapping)

	ids := []string{providers[0].CUIT, providers[1].CUIT, providers[2].CUIT}
	assert.Equal(t, []string{"20111111112", "27222222225", "30333333334"}, ids)
}

func TestAggregateSkipsEmptyIdentifier(t *testing.T) {
	for _, p := range Aggregate(seededStore(), mapping) {
		assert.NotEmpty(t, p.CUIT)
	}
}

func TestAggregateBooksOnlyCounterparty(t *testing.T) {
	providers := Aggregate(seededStore(), mapping)

	tail := providers[2]
	assert.True(t, tail.TotalTax.IsZero())
	assert.True(t, tail.TotalBooks.Equal(decimal.NewFromInt(60)))
	assert.True(t, tail.Difference.Equal(decimal.NewFromInt(-60)))
	assert.Equal(t, models.DisplayNameUnavailable, tail.DisplayName)
}

func TestDifferenceAlwaysTaxMinusBooks(t *testing.T) {
	for _, p := range Aggregate(seededStore(), mapping) {
		assert.True(t, p.Difference.Equal(p.TotalTax.Sub(p.TotalBooks)))
	}
}

func TestFilterByMinDifference(t *testing.T) {
	providers := Aggregate(seededStore(), mapping)

	all := FilterByMinDifference(providers, decimal.Zero)
	assert.Len(t, all, 3)

	big := FilterByMinDifference(providers, decimal.NewFromInt(55))
	require.Len(t, big, 1)
	assert.Equal(t, "30333333334", big[0].CUIT)
}

func TestSummarizeTotalsFilteredDifferences(t *testing.T) {
	summary := Summarize(seededStore(), mapping, decimal.Zero)

	assert.Equal(t, 3, summary.ProvidersFound)
	// 50 + 100 - 60
	assert.True(t, summary.TotalDifference.Equal(decimal.NewFromInt(90)), "got %s", summary.TotalDifference)
}
