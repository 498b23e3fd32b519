package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mgiordano/cotejo/pkg/models"
)

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbookFirstSheet(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"CUIT", "Razón Social", "Monto Retenido"},
		{"20-11111111-2", "ACME SRL", 1500.50},
		{"27-22222222-5", "Proveedor SA", 300},
	})

	upload, err := Read(bytes.NewReader(data), "arca.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"CUIT", "Razón Social", "Monto Retenido"}, upload.Columns)
	require.Len(t, upload.Rows, 2)

	v, ok := upload.Rows[0].Get("CUIT")
	require.True(t, ok)
	assert.Equal(t, "20-11111111-2", v.String())
}

func TestReadSkipsBlankRows(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"CUIT", "Monto"},
		{"20-11111111-2", 100},
		{"", ""},
		{"27-22222222-5", 200},
	})

	upload, err := Read(bytes.NewReader(data), "libro.xlsx")
	require.NoError(t, err)
	assert.Len(t, upload.Rows, 2)
}

func TestReadCSV(t *testing.T) {
	raw := "CUIT,Monto\n20-11111111-2,1500.50\n27-22222222-5,aviso\n"

	upload, err := Read(strings.NewReader(raw), "extract.csv")
	require.NoError(t, err)
	require.Len(t, upload.Rows, 2)

	amount, ok := upload.Rows[0].Get("Monto")
	require.True(t, ok)
	assert.Equal(t, models.FieldNumber, amount.Kind)

	text, ok := upload.Rows[1].Get("Monto")
	require.True(t, ok)
	assert.Equal(t, models.FieldString, text.Kind)
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	_, err := Read(strings.NewReader("x"), "notas.txt")
	assert.Error(t, err)
}

func TestReadRejectsLegacyXLS(t *testing.T) {
	_, err := Read(strings.NewReader("x"), "extracto.xls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadRejectsEmptyFile(t *testing.T) {
	_, err := Read(strings.NewReader(""), "vacio.csv")
	assert.Error(t, err)
}

func TestGuessColumnsTaxSide(t *testing.T) {
	id, amount := GuessColumns(models.SourceTax, []string{"Fecha", "CUIT Agente", "Razón Social", "Monto Retenido"})
	assert.Equal(t, "CUIT Agente", id)
	assert.Equal(t, "Monto Retenido", amount)
}

func TestGuessColumnsBooksSidePrefersCredit(t *testing.T) {
	id, amount := GuessColumns(models.SourceBooks, []string{"Cuit", "Débito", "Crédito", "Monto Total"})
	assert.Equal(t, "Cuit", id)
	assert.Equal(t, "Crédito", amount)
}

func TestGuessColumnsFallsBackToMonto(t *testing.T) {
	_, amount := GuessColumns(models.SourceBooks, []string{"CUIT", "Monto"})
	assert.Equal(t, "Monto", amount)
}

func TestGuessColumnsMissingCandidates(t *testing.T) {
	id, amount := GuessColumns(models.SourceTax, []string{"Fecha", "Detalle"})
	assert.Empty(t, id)
	assert.Empty(t, amount)
}
