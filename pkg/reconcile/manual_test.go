package reconcile

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/store"
)

func manualStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{
		ledgerRowAmount("20-11111111-2", 500, "Monto Retenido"),
		ledgerRowAmount("20-11111111-2", 300, "Monto Retenido"),
		ledgerRowAmount("27-22222222-5", 100, "Monto Retenido"),
	})
	st.Ingest(models.SourceBooks, []models.Row{
		ledgerRowAmount("20111111112", 750, "Monto"),
		ledgerRowAmount("27222222225", 100, "Monto"),
	})
	return st
}

func TestSelectionModes(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{PendingTax: []int{0}})
	assert.Equal(t, ModeReconcile, sel.Mode())

	sel = engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{UnmatchedBooks: []int{0}})
	assert.Equal(t, ModeReconcile, sel.Mode())

	sel = engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{})
	assert.Equal(t, ModeNone, sel.Mode())
}

func TestSelectionMixedPicksSupportNoAction(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()
	engine.AutoMatch(context.Background(), st, testMapping)

	// tax index 2 auto-matched; mixing it with a pending pick yields no mode
	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{
		PendingTax:    []int{0},
		ReconciledTax: []int{2},
	})
	assert.Equal(t, ModeNone, sel.Mode())
	assert.False(t, engine.CanReconcile(sel))
}

func TestSelectionDropsStaleIndices(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{
		PendingTax:     []int{0, 99},
		UnmatchedBooks: []int{0, 42},
	})

	assert.Len(t, sel.PendingTax, 1)
	assert.Len(t, sel.UnmatchedBooks, 1)
}

func TestCommitGroupWithDifference(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()

	// 500 + 300 tax against 750 books: net +50, inside tolerance
	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{
		PendingTax:     []int{0, 1},
		UnmatchedBooks: []int{0},
	})
	require.True(t, sel.NetDifference.Equal(decimal.NewFromInt(50)), "got %s", sel.NetDifference)
	require.True(t, engine.CanReconcile(sel))

	matchID, ok := engine.Commit(context.Background(), sel)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(matchID, "manual_"))

	group := st.Group(matchID)
	require.Len(t, group, 3)
	for _, rec := range group {
		assert.Equal(t, models.StatusReconciledWithDiff, rec.Status)
	}
}

func TestCommitExactGroupIsReconciled(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{
		PendingTax:     []int{2},
		UnmatchedBooks: []int{1},
	})
	require.True(t, sel.NetDifference.IsZero())

	matchID, ok := engine.Commit(context.Background(), sel)
	require.True(t, ok)

	for _, rec := range st.Group(matchID) {
		assert.Equal(t, models.StatusReconciled, rec.Status)
	}
}

func TestCommitRejectsSingleRecord(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{PendingTax: []int{0}})

	assert.False(t, engine.CanReconcile(sel))
	_, ok := engine.Commit(context.Background(), sel)
	assert.False(t, ok)

	rec, _ := st.ByIndex(models.SourceTax, 0)
	assert.Equal(t, models.StatusPending, rec.Status)
}

func TestCommitRejectsNetBeyondTolerance(t *testing.T) {
	st := store.New()
	st.Ingest(models.SourceTax, []models.Row{ledgerRowAmount("20-11111111-2", 5000, "Monto Retenido")})
	st.Ingest(models.SourceBooks, []models.Row{ledgerRowAmount("20111111112", 100, "Monto")})
	engine := newTestEngine()

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{
		PendingTax:     []int{0},
		UnmatchedBooks: []int{0},
	})
	require.True(t, sel.NetDifference.Equal(decimal.NewFromInt(4900)))

	assert.False(t, engine.CanReconcile(sel))
	_, ok := engine.Commit(context.Background(), sel)
	assert.False(t, ok)
}

func TestDereconcileResetsWholeGroup(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{
		PendingTax:     []int{0, 1},
		UnmatchedBooks: []int{0},
	})
	matchID, ok := engine.Commit(context.Background(), sel)
	require.True(t, ok)

	// selecting a single member reverses all three records
	reverseSel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{ReconciledTax: []int{0}})
	require.Equal(t, ModeDereconcile, reverseSel.Mode())
	reversed := engine.Dereconcile(context.Background(), st, reverseSel)
	assert.Equal(t, 1, reversed)

	assert.Empty(t, st.Group(matchID))
	for _, idx := range []int{0, 1} {
		rec, _ := st.ByIndex(models.SourceTax, idx)
		assert.Equal(t, models.StatusPending, rec.Status)
		assert.Empty(t, rec.MatchID)
	}
	booksRec, _ := st.ByIndex(models.SourceBooks, 0)
	assert.Equal(t, models.StatusPending, booksRec.Status)
}

func TestDereconcileIsIdempotent(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()
	engine.AutoMatch(context.Background(), st, testMapping)

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{ReconciledTax: []int{2}})
	assert.Equal(t, 1, engine.Dereconcile(context.Background(), st, sel))

	// the same indices are now pending, so the rebuilt selection is empty
	again := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{ReconciledTax: []int{2}})
	assert.Equal(t, ModeNone, again.Mode())
	assert.Equal(t, 0, engine.Dereconcile(context.Background(), st, again))
}

func TestDereconcileThenAutoMatchRestoresPair(t *testing.T) {
	st := manualStore(t)
	engine := newTestEngine()
	engine.AutoMatch(context.Background(), st, testMapping)

	sel := engine.BuildSelection(st, testMapping, models.ManualSelectionRequest{ReconciledTax: []int{2}})
	engine.Dereconcile(context.Background(), st, sel)

	engine.AutoMatch(context.Background(), st, testMapping)

	taxRec, _ := st.ByIndex(models.SourceTax, 2)
	booksRec, _ := st.ByIndex(models.SourceBooks, 1)
	assert.Equal(t, models.StatusReconciled, taxRec.Status)
	assert.Equal(t, taxRec.MatchID, booksRec.MatchID)
}
