// Package ingest parses uploaded ledger extracts into rows
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mgiordano/cotejo/pkg/models"
	"github.com/mgiordano/cotejo/pkg/normalize"
)

// Upload is one parsed extract file
type Upload struct {
	FileName string       `json:"file_name"`
	Columns  []string     `json:"columns"`
	Rows     []models.Row `json:"-"`
}

// Read parses an uploaded extract by file extension. Workbooks read their
// first sheet; the first row is always the header.
func Read(r io.Reader, fileName string) (*Upload, error) {
	var raw [][]string
	var err error

	// legacy .xls is a different container excelize cannot read, so it is
	// rejected up front rather than failing mid-parse
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		raw, err = readCSV(r)
	case ".xlsx":
		raw, err = readWorkbook(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(fileName))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", fileName)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("file %s has no header row", fileName)
	}

	header := raw[0]
	upload := &Upload{FileName: fileName}
	for _, name := range header {
		if strings.TrimSpace(name) != "" {
			upload.Columns = append(upload.Columns, name)
		}
	}

	for _, cells := range raw[1:] {
		if isEmptyRow(cells) {
			continue
		}
		row := models.NewRow()
		for i, name := range header {
			if strings.TrimSpace(name) == "" || i >= len(cells) {
				continue
			}
			row.Set(name, cellValue(cells[i]))
		}
		upload.Rows = append(upload.Rows, row)
	}

	return upload, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	return f.GetRows(sheet)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// cellValue keeps plain numeric cells typed so amount normalization can
// use them directly.
func cellValue(raw string) models.FieldValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return models.NumberField(n)
		}
	}
	return models.StringField(raw)
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// GuessColumns proposes an identifier and amount column for a source from
// its header names. The tax extract names its amount "monto retenido"; the
// books extract favors a credit column. Empty results mean no candidate.
func GuessColumns(source models.Source, columns []string) (idColumn, amountColumn string) {
	for _, column := range columns {
		folded := normalize.Fold(column)
		if idColumn == "" && strings.Contains(folded, "cuit") {
			idColumn = column
		}
	}

	primary, fallback := "credito", "monto"
	if source == models.SourceTax {
		primary, fallback = "monto retenido", "monto"
	}

	for _, column := range columns {
		if strings.Contains(normalize.Fold(column), primary) {
			return idColumn, column
		}
	}
	for _, column := range columns {
		if strings.Contains(normalize.Fold(column), fallback) {
			return idColumn, column
		}
	}
	return idColumn, ""
}
