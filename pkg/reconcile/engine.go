// Package reconcile implements automatic and operator-confirmed matching
// between the two ledger sources.
package reconcile

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgiordano/cotejo/internal/tracing"
	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
	"github.com/mgiordano/cotejo/pkg/store"
)

// Config contains the engine tolerances. Both are configuration, not
// constants: the exact epsilon decides when amounts count as equal (and
// whether a manual group is Reconciled or ReconciledWithDifference); the
// manual tolerance is the coarse sanity bound on a manual group's net
// difference.
type Config struct {
	ExactEpsilon    decimal.Decimal
	ManualTolerance decimal.Decimal
}

// DefaultConfig returns the default engine tolerances
func DefaultConfig() Config {
	return Config{
		ExactEpsilon:    decimal.NewFromFloat(0.01),
		ManualTolerance: decimal.NewFromInt(1000),
	}
}

// Engine mutates record state in a session store. It never blocks, never
// panics on data shape, and assumes the caller serializes access to the
// store.
type Engine struct {
	logger ectologger.Logger
	config Config
}

// NewEngine creates a reconciliation engine
func NewEngine(logger ectologger.Logger, config Config) *Engine {
	return &Engine{
		logger: logger,
		config: config,
	}
}

// Config returns the engine tolerances
func (e *Engine) Config() Config {
	return e.config
}

// AutoMatch pairs pending records with identical normalized identifier and
// amount; records already reconciled (including manual groups) are left
// alone. The scan is greedy first-fit: tax records in original order, each
// probing the not-yet-consumed books records in original order; the
// earliest hit wins and is excluded from further scans. With duplicate
// identifier+amount pairs the pairing therefore depends on input order.
// That tie-break is deliberate and must not be replaced with a global
// assignment.
func (e *Engine) AutoMatch(ctx context.Context, st *store.Store, mapping models.ColumnMapping) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Engine.AutoMatch")
	defer span.End()

	taxRecords := st.Records(models.SourceTax)
	booksRecords := st.Records(models.SourceBooks)

	booksKeys := make([]normalize.Key, len(booksRecords))
	for i, rec := range booksRecords {
		booksKeys[i] = normalize.RecordKey(rec.Fields, mapping.BooksIDColumn, mapping.BooksAmountColumn)
	}

	consumed := make([]bool, len(booksRecords))
	for i, rec := range booksRecords {
		consumed[i] = rec.Status != models.StatusPending
	}
	matched := 0

	for _, taxRec := range taxRecords {
		if taxRec.Status != models.StatusPending {
			continue
		}
		key := normalize.RecordKey(taxRec.Fields, mapping.TaxIDColumn, mapping.TaxAmountColumn)

		for i, booksKey := range booksKeys {
			if consumed[i] {
				continue
			}
			if booksKey.ID != key.ID || !e.amountsEqual(key.Amount, booksKey.Amount) {
				continue
			}

			matchID := fmt.Sprintf("auto_%s", uuid.New().String())
			taxRec.Status = models.StatusReconciled
			taxRec.MatchID = matchID
			booksRec := booksRecords[i]
			booksRec.Status = models.StatusReconciled
			booksRec.MatchID = matchID

			consumed[i] = true
			matched++
			break
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"tax_records":   len(taxRecords),
		"books_records": len(booksRecords),
		"matched_pairs": matched,
	}).Info("Automatic matching completed")
}

// amountsEqual compares amounts at the epsilon's precision (cents by
// default), mirroring the two-decimal comparison of the legacy matcher.
func (e *Engine) amountsEqual(a, b decimal.Decimal) bool {
	places := -e.config.ExactEpsilon.Exponent()
	return a.Round(places).Equal(b.Round(places))
}

// withinExactEpsilon reports |d| < ExactEpsilon
func (e *Engine) withinExactEpsilon(d decimal.Decimal) bool {
	return d.Abs().LessThan(e.config.ExactEpsilon)
}

// withinManualTolerance reports |d| < ManualTolerance
func (e *Engine) withinManualTolerance(d decimal.Decimal) bool {
	return d.Abs().LessThan(e.config.ManualTolerance)
}
