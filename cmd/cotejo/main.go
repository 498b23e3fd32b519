package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mgiordano/cotejo/pkg/discrepancy"
	"github.com/mgiordano/cotejo/pkg/export"
	"github.com/mgiordano/cotejo/pkg/ingest"
	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/reconcile"
	"github.com/mgiordano/cotejo/pkg/store"
)

type reconcileFlags struct {
	taxFile   string
	booksFile string

	taxIDColumn       string
	taxAmountColumn   string
	booksIDColumn     string
	booksAmountColumn string

	outFile       string
	minDifference string
}

func main() {
	root := &cobra.Command{
		Use:   "cotejo",
		Short: "Reconciliation tooling for ARCA and accounting extracts",
	}
	root.AddCommand(newReconcileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newReconcileCmd() *cobra.Command {
	flags := &reconcileFlags{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match two extracts and print per-counterparty differences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.taxFile, "arca", "", "ARCA extract file (xlsx or csv)")
	cmd.Flags().StringVar(&flags.booksFile, "contabilidad", "", "accounting extract file (xlsx or csv)")
	cmd.Flags().StringVar(&flags.taxIDColumn, "cuit-arca", "", "identifier column in the ARCA extract")
	cmd.Flags().StringVar(&flags.taxAmountColumn, "monto-arca", "", "amount column in the ARCA extract")
	cmd.Flags().StringVar(&flags.booksIDColumn, "cuit-cont", "", "identifier column in the accounting extract")
	cmd.Flags().StringVar(&flags.booksAmountColumn, "monto-cont", "", "amount column in the accounting extract")
	cmd.Flags().StringVar(&flags.outFile, "out", "", "write the result workbook to this path")
	cmd.Flags().StringVar(&flags.minDifference, "min-difference", "0", "hide counterparties below this absolute difference")
	_ = cmd.MarkFlagRequired("arca")
	_ = cmd.MarkFlagRequired("contabilidad")

	return cmd
}

func runReconcile(ctx context.Context, flags *reconcileFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	minDifference, err := decimal.NewFromString(flags.minDifference)
	if err != nil {
		return fmt.Errorf("invalid --min-difference: %w", err)
	}

	taxUpload, err := readExtract(flags.taxFile)
	if err != nil {
		return err
	}
	booksUpload, err := readExtract(flags.booksFile)
	if err != nil {
		return err
	}

	mapping := resolveMapping(flags, taxUpload, booksUpload)
	if mapping.TaxIDColumn == "" || mapping.BooksIDColumn == "" {
		return fmt.Errorf("could not resolve identifier columns; pass --cuit-arca and --cuit-cont")
	}
	if mapping.TaxAmountColumn == "" || mapping.BooksAmountColumn == "" {
		return fmt.Errorf("could not resolve amount columns; pass --monto-arca and --monto-cont")
	}

	st := store.New()
	st.Ingest(models.SourceTax, taxUpload.Rows)
	st.Ingest(models.SourceBooks, booksUpload.Rows)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := reconcile.NewEngine(logger, reconcile.DefaultConfig())
	engine.AutoMatch(ctx, st, mapping)

	summary := reconcile.Summarize(st, mapping)
	fmt.Printf("Registros ARCA:         %d\n", summary.CountTax)
	fmt.Printf("Conciliados:            %d (%s)\n", summary.CountReconciled, summary.TotalReconciled.StringFixed(2))
	fmt.Printf("Pendientes:             %d (%s)\n", summary.CountPending, summary.TotalPending.StringFixed(2))

	result := discrepancy.Summarize(st, mapping, minDifference)
	fmt.Printf("Proveedores:            %d\n", result.ProvidersFound)
	fmt.Printf("Diferencia total:       %s\n\n", result.TotalDifference.StringFixed(2))

	for _, p := range result.Providers {
		fmt.Printf("%-13s %-40s ARCA %14s  Cont %14s  Dif %14s\n",
			p.CUIT, p.DisplayName,
			p.TotalTax.StringFixed(2), p.TotalBooks.StringFixed(2), p.Difference.StringFixed(2))
	}

	if flags.outFile != "" {
		buf, err := export.Workbook(st, mapping, export.Options{})
		if err != nil {
			return fmt.Errorf("failed to build workbook: %w", err)
		}
		if err := os.WriteFile(flags.outFile, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", flags.outFile, err)
		}
		fmt.Printf("\nReporte escrito en %s\n", flags.outFile)
	}

	return nil
}

func readExtract(path string) (*ingest.Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ingest.Read(f, path)
}

func resolveMapping(flags *reconcileFlags, taxUpload, booksUpload *ingest.Upload) models.ColumnMapping {
	mapping := models.ColumnMapping{
		TaxIDColumn:       flags.taxIDColumn,
		TaxAmountColumn:   flags.taxAmountColumn,
		BooksIDColumn:     flags.booksIDColumn,
		BooksAmountColumn: flags.booksAmountColumn,
	}

	guessedID, guessedAmount := ingest.GuessColumns(models.SourceTax, taxUpload.Columns)
	if mapping.TaxIDColumn == "" {
		mapping.TaxIDColumn = guessedID
	}
	if mapping.TaxAmountColumn == "" {
		mapping.TaxAmountColumn = guessedAmount
	}

	guessedID, guessedAmount = ingest.GuessColumns(models.SourceBooks, booksUpload.Columns)
	if mapping.BooksIDColumn == "" {
		mapping.BooksIDColumn = guessedID
	}
	if mapping.BooksAmountColumn == "" {
		mapping.BooksAmountColumn = guessedAmount
	}

	return mapping
}
