package reconcile

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/store"
)

var testMapping = models.ColumnMapping{
	TaxIDColumn:       "CUIT",
	TaxAmountColumn:   "Monto Retenido",
	BooksIDColumn:     "CUIT",
	BooksAmountColumn: "Monto",
}

func newTestEngine() *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewEngine(logger, DefaultConfig())
}

func ledgerRowAmount(cuit string, amount float64, amountColumn string) models.Row {
	row := models.NewRow()
	row.Set("CUIT", models.StringField(cuit))
	row.Set(amountColumn, models.NumberField(amount))
	return row
}

func TestAutoMatchPairsAcrossIdentifierFormats(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{ledgerRowAmount("20-11111111-2", 1500.50, "Monto Retenido")})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 1500.50, "Monto")})

	newTestEngine().AutoMatch(context.Background(), st, testMapping)

	taxRec, _ := st.ByIndex(models.SourceTax, 0)
	booksRec, _ := st.ByIndex(models.SourceBooks, 0)

	assert.Equal(t, models.StatusReconciled, taxRec.Status)
	assert.Equal(t, models.StatusReconciled, booksRec.Status)
	require.NotEmpty(t, taxRec.MatchID)
	assert.Equal(t, taxRec.MatchID, booksRec.MatchID)
}

func TestAutoMatchDistinctGroupsGetDistinctIDs(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{
		ledgerRowAmount("20-11111111-2", 100, "Monto Retenido"),
		ledgerRowAmount("27-22222222-5", 200, "Monto Retenido"),
	})
	st.Ingest(models.SourceBooks, []models.Row{
		ledgerRowAmount("20111111112", 100, "Monto"),
		ledgerRowAmount("27222222225", 200, "Monto"),
	})

	newTestEngine().AutoMatch(context.Background(), st, testMapping)

	first, _ := st.ByIndex(models.SourceTax, 0)
	second, _ := st.ByIndex(models.SourceTax, 1)
	require.NotEmpty(t, first.MatchID)
	require.NotEmpty(t, second.MatchID)
	assert.NotEqual(t, first.MatchID, second.MatchID)
}

func TestAutoMatchGreedyFirstFit(t *testing.T) {
	// two identical tax rows against one books row: only the first pairs
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{
		ledgerRowAmount("20-11111111-2", 100, "Monto Retenido"),
		ledgerRowAmount("20-11111111-2", 100, "Monto Retenido"),
	})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 100, "Monto")})

	newTestEngine().AutoMatch(context.Background(), st, testMapping)

	first, _ := st.ByIndex(models.SourceTax, 0)
	second, _ := st.ByIndex(models.SourceTax, 1)
	assert.Equal(t, models.StatusReconciled, first.Status)
	assert.Equal(t, models.StatusPending, second.Status)
}

func TestAutoMatchRequiresAmountEquality(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{ledgerRowAmount("20-11111111-2", 100.00, "Monto Retenido")})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 100.02, "Monto")})

	newTestEngine().AutoMatch(context.Background(), st, testMapping)

	taxRec, _ := st.ByIndex(models.SourceTax, 0)
	assert.Equal(t, models.StatusPending, taxRec.Status)
	assert.Empty(t, taxRec.MatchID)
}

func TestAutoMatchComparesAtCentPrecision(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{ledgerRowAmount("20-11111111-2", 100.004, "Monto Retenido")})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 100.001, "Monto")})

	newTestEngine().AutoMatch(context.Background(), st, testMapping)

	taxRec, _ := st.ByIndex(models.SourceTax, 0)
	assert.Equal(t, models.StatusReconciled, taxRec.Status)
}

func TestAutoMatchIsIdempotentOnRerun(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{ledgerRowAmount("20-11111111-2", 100, "Monto Retenido")})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 100, "Monto")})

	engine := newTestEngine()
	engine.AutoMatch(context.Background(), st, testMapping)
	taxRec, _ := st.ByIndex(models.SourceTax, 0)
	firstID := taxRec.MatchID
	require.NotEmpty(t, firstID)

	engine.AutoMatch(context.Background(), st, testMapping)

	booksRec, _ := st.ByIndex(models.SourceBooks, 0)
	assert.Equal(t, firstID, taxRec.MatchID)
	assert.Equal(t, firstID, booksRec.MatchID)
}

func TestSummarizeSplitsTaxTotals(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{
		ledgerRowAmount("20-11111111-2", 100, "Monto Retenido"),
		ledgerRowAmount("27-22222222-5", 250.50, "Monto Retenido"),
	})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 100, "Monto")})

	newTestEngine().AutoMatch(context.Background(), st, testMapping)
	summary := Summarize(st, testMapping)

	assert.Equal(t, 2, summary.CountTax)
	assert.Equal(t, 1, summary.CountReconciled)
	assert.Equal(t, 1, summary.CountPending)
	assert.True(t, summary.TotalTax.Equal(decimal.NewFromFloat(350.50)), "got %s", summary.TotalTax)
	assert.True(t, summary.TotalReconciled.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.TotalPending.Equal(decimal.NewFromFloat(250.50)))
	assert.True(t, summary.TotalTax.Equal(summary.TotalReconciled.Add(summary.TotalPending)))
}
