package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgiordano/cotejo/internal/tracing"
	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
	"github.com/mgiordano/cotejo/pkg/store"
)

// Mode is the single action a manual selection can support
type Mode string

const (
	ModeNone        Mode = "none"
	ModeReconcile   Mode = "reconcile"
	ModeDereconcile Mode = "dereconcile"
)

// Selection is the operator's current pick across the three record tables.
// It is rebuilt wholesale from each request; indices that no longer resolve
// or whose record status contradicts the table they were picked from are
// dropped silently, so a stale client never faults the session.
type Selection struct {
	PendingTax     []*models.Record
	ReconciledTax  []*models.Record
	UnmatchedBooks []*models.Record

	NetDifference decimal.Decimal
}

// BuildSelection resolves a raw index selection against the store and
// computes the net difference (sum of selected pending tax amounts minus
// sum of selected unmatched books amounts).
func (e *Engine) BuildSelection(st *store.Store, mapping models.ColumnMapping, req models.ManualSelectionRequest) Selection {
	sel := Selection{NetDifference: decimal.Zero}

	for _, idx := range req.PendingTax {
		rec, ok := st.ByIndex(models.SourceTax, idx)
		if !ok || rec.Status != models.StatusPending {
			continue
		}
		sel.PendingTax = append(sel.PendingTax, rec)
		key := normalize.RecordKey(rec.Fields, "", mapping.TaxAmountColumn)
		sel.NetDifference = sel.NetDifference.Add(key.Amount)
	}

	for _, idx := range req.ReconciledTax {
		rec, ok := st.ByIndex(models.SourceTax, idx)
		if !ok || !rec.Status.IsReconciled() {
			continue
		}
		sel.ReconciledTax = append(sel.ReconciledTax, rec)
	}

	for _, idx := range req.UnmatchedBooks {
		rec, ok := st.ByIndex(models.SourceBooks, idx)
		if !ok || rec.Status != models.StatusPending {
			continue
		}
		sel.UnmatchedBooks = append(sel.UnmatchedBooks, rec)
		key := normalize.RecordKey(rec.Fields, "", mapping.BooksAmountColumn)
		sel.NetDifference = sel.NetDifference.Sub(key.Amount)
	}

	return sel
}

// Mode derives the single action the selection supports. Mixing reconciled
// records with pending or unmatched ones supports neither action; the
// caller hides the button rather than raising an error.
func (s Selection) Mode() Mode {
	hasOpen := len(s.PendingTax) > 0 || len(s.UnmatchedBooks) > 0
	hasReconciled := len(s.ReconciledTax) > 0

	switch {
	case hasOpen && !hasReconciled:
		return ModeReconcile
	case hasReconciled && !hasOpen:
		return ModeDereconcile
	default:
		return ModeNone
	}
}

func (s Selection) reconcileSize() int {
	return len(s.PendingTax) + len(s.UnmatchedBooks)
}

// CanReconcile reports whether the selection may be committed as a manual
// group: reconcile mode, at least two records, net difference inside the
// manual tolerance.
func (e *Engine) CanReconcile(s Selection) bool {
	if s.Mode() != ModeReconcile {
		return false
	}
	if s.reconcileSize() < 2 {
		return false
	}
	return e.withinManualTolerance(s.NetDifference)
}

// Commit applies a manual reconciliation: every selected record joins a
// fresh match group, Reconciled when the net difference is inside the exact
// epsilon and ReconciledWithDifference otherwise. Returns the match id and
// whether the commit happened.
func (e *Engine) Commit(ctx context.Context, s Selection) (string, bool) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.Commit")
	defer span.End()

	if !e.CanReconcile(s) {
		return "", false
	}

	status := models.StatusReconciledWithDiff
	if e.withinExactEpsilon(s.NetDifference) {
		status = models.StatusReconciled
	}

	matchID := fmt.Sprintf("manual_%s", uuid.New().String())
	for _, rec := range s.PendingTax {
		rec.Status = status
		rec.MatchID = matchID
	}
	for _, rec := range s.UnmatchedBooks {
		rec.Status = status
		rec.MatchID = matchID
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"match_id":       matchID,
		"records":        s.reconcileSize(),
		"net_difference": s.NetDifference.String(),
		"status":         string(status),
	}).Info("Manual reconciliation committed")

	return matchID, true
}

// Dereconcile reverses the full match group of every selected reconciled
// record. Partial group reversal is impossible: selecting one member always
// resets all members on both sides back to Pending with their match ids
// cleared. Records with no match id are reset individually. Idempotent;
// returns the number of groups reversed.
func (e *Engine) Dereconcile(ctx context.Context, st *store.Store, s Selection) int {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.Dereconcile")
	defer span.End()

	reversed := 0
	for _, rec := range s.ReconciledTax {
		matchID := rec.MatchID
		if matchID == "" {
			rec.Status = models.StatusPending
			continue
		}

		group := st.Group(matchID)
		if len(group) == 0 {
			continue
		}
		for _, member := range group {
			member.Status = models.StatusPending
			member.MatchID = ""
		}
		reversed++
	}

	e.logger.WithContext(ctx).WithField("groups_reversed", reversed).Info("Dereconciliation completed")
	return reversed
}
