package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mgiordano/cotejo/pkg/models"
)

func rowWith(pairs ...any) models.Row {
	row := models.NewRow()
	for i := 0; i < len(pairs); i += 2 {
		column := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case string:
			row.Set(column, models.StringField(v))
		case float64:
			row.Set(column, models.NumberField(v))
		case int:
			row.Set(column, models.NumberField(float64(v)))
		}
	}
	return row
}

func TestRecordKeyDigitsOnlyIdentifier(t *testing.T) {
	row := rowWith("CUIT", "30-12345678-9", "Monto", 100.0)

	key := RecordKey(row, "CUIT", "Monto")

	assert.Equal(t, "30123456789", key.ID)
	assert.True(t, key.Amount.Equal(decimal.NewFromInt(100)))
}

func TestRecordKeyOmittedColumns(t *testing.T) {
	row := rowWith("CUIT", "20-11111111-2", "Monto", 55.5)

	idOnly := RecordKey(row, "CUIT", "")
	assert.Equal(t, "20111111112", idOnly.ID)
	assert.True(t, idOnly.Amount.IsZero())

	amountOnly := RecordKey(row, "", "Monto")
	assert.Equal(t, "", amountOnly.ID)
	assert.True(t, amountOnly.Amount.Equal(decimal.NewFromFloat(55.5)))
}

func TestRecordKeyMissingColumnsAreLenient(t *testing.T) {
	row := rowWith("Otro", "x")

	key := RecordKey(row, "CUIT", "Monto")

	assert.Equal(t, "", key.ID)
	assert.True(t, key.Amount.IsZero())
}

func TestAmountCommaDecimalSeparator(t *testing.T) {
	amount := Amount(models.StringField("$ 1234,56"))
	assert.True(t, amount.Equal(decimal.NewFromFloat(1234.56)), "got %s", amount)
}

func TestAmountNumericCellUsedAsIs(t *testing.T) {
	amount := Amount(models.NumberField(1234.56))
	assert.True(t, amount.Equal(decimal.NewFromFloat(1234.56)))
}

func TestAmountThousandsSeparatorKeepsPrefix(t *testing.T) {
	// "1.234,56" cleans to "1.234.56"; the lenient prefix parse yields 1.234
	amount := Amount(models.StringField("1.234,56"))
	assert.True(t, amount.Equal(decimal.NewFromFloat(1.234)), "got %s", amount)
}

func TestAmountUnparseableIsZero(t *testing.T) {
	for _, raw := range []string{"", "n/a", "--", "..", "ARS"} {
		amount := Amount(models.StringField(raw))
		assert.True(t, amount.IsZero(), "input %q gave %s", raw, amount)
	}
}

func TestRecordKeyIsPure(t *testing.T) {
	row := rowWith("CUIT", "27-22222222-5", "Monto", "1000,10")

	first := RecordKey(row, "CUIT", "Monto")
	second := RecordKey(row, "CUIT", "Monto")

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Amount.Equal(second.Amount))
}

func TestDisplayNameMatchesDiacriticInsensitively(t *testing.T) {
	row := rowWith("CUIT", "30-12345678-9", "Razón Social", "ACME SRL")
	assert.Equal(t, "ACME SRL", DisplayName(row))

	row = rowWith("Denominación", "Proveedor SA")
	assert.Equal(t, "Proveedor SA", DisplayName(row))

	row = rowWith("Nombre y Apellido", "Juan Pérez")
	assert.Equal(t, "Juan Pérez", DisplayName(row))
}

func TestDisplayNameSentinel(t *testing.T) {
	row := rowWith("CUIT", "30-12345678-9", "Monto", 10.0)
	assert.Equal(t, models.DisplayNameUnavailable, DisplayName(row))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "razon social", Fold("  Razón Social "))
	assert.Equal(t, "denominacion", Fold("DENOMINACIÓN"))
}
