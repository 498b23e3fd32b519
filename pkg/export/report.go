// Package export renders the working state of a reconciliation into a
// downloadable workbook.
package export

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
	"github.com/mgiordano/cotejo/pkg/store"
)

const (
	SheetTaxPending     = "ARCA Pendiente"
	SheetReconciled     = "Conciliadas"
	SheetBooksUnmatched = "Contabilidad Sin Match"

	columnStatus  = "Estado"
	columnComment = "Comentarios"
)

// Options narrows what the workbook contains
type Options struct {
	// CUITFilter keeps only records whose normalized identifier matches.
	// Compared digits-only, so any formatting works.
	CUITFilter string
}

// Workbook renders three sheets: pending tax records, reconciled tax
// records, and unmatched books records. Reconciled books records carry no
// extra information over their tax counterparts and are left out. Empty
// sheets are left out. Only original columns plus status and comment are
// written; match ids and indices stay internal.
func Workbook(st *store.Store, mapping models.ColumnMapping, opts Options) (*bytes.Buffer, error) {
	filter := normalize.DigitsOnly(opts.CUITFilter)

	keep := func(rec *models.Record) bool {
		if filter == "" {
			return true
		}
		key := normalize.RecordKey(rec.Fields, mapping.IDColumn(rec.Source), "")
		return key.ID == filter
	}

	var taxPending, reconciled, booksUnmatched []*models.Record
	for _, rec := range st.Records(models.SourceTax) {
		if !keep(rec) {
			continue
		}
		if rec.Status.IsReconciled() {
			reconciled = append(reconciled, rec)
		} else {
			taxPending = append(taxPending, rec)
		}
	}
	for _, rec := range st.Records(models.SourceBooks) {
		if !keep(rec) || rec.Status.IsReconciled() {
			continue
		}
		booksUnmatched = append(booksUnmatched, rec)
	}

	f := excelize.NewFile()
	defer f.Close()

	written := 0
	sheets := []struct {
		name    string
		records []*models.Record
	}{
		{SheetTaxPending, taxPending},
		{SheetReconciled, reconciled},
		{SheetBooksUnmatched, booksUnmatched},
	}
	for _, sheet := range sheets {
		if len(sheet.records) == 0 {
			continue
		}
		if err := writeSheet(f, sheet.name, sheet.records); err != nil {
			return nil, errors.Wrapf(err, "failed to write sheet %s", sheet.name)
		}
		written++
	}

	if written > 0 {
		if err := f.DeleteSheet(f.GetSheetName(0)); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

func writeSheet(f *excelize.File, name string, records []*models.Record) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	var header []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, column := range rec.Fields.Columns {
			if !seen[column] {
				seen[column] = true
				header = append(header, column)
			}
		}
	}
	header = append(header, columnStatus, columnComment)

	if err := setRow(f, name, 1, stringsToCells(header)); err != nil {
		return err
	}

	for i, rec := range records {
		cells := make([]any, 0, len(header))
		for _, column := range header[:len(header)-2] {
			cells = append(cells, fieldCell(rec.Fields, column))
		}
		cells = append(cells, string(rec.Status), rec.Comment)

		if err := setRow(f, name, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNumber int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func fieldCell(row models.Row, column string) any {
	v, ok := row.Get(column)
	if !ok {
		return ""
	}
	if v.Kind == models.FieldNumber {
		return v.Num
	}
	return v.String()
}

func stringsToCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
