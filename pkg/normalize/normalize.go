// Package normalize derives comparison keys from heterogeneous ledger rows
package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mgiordano/cotejo/pkg/models"
)

// Key is the comparable identity of a ledger row: a digits-only
// counterparty identifier and a decimal amount. Either side may be empty
// when the caller only needs the other (grouping by identifier alone, or
// summing amounts alone).
type Key struct {
	ID     string
	Amount decimal.Decimal
}

// RecordKey normalizes a row into a comparison key. Missing columns,
// empty column names and malformed values never fail: the identifier
// falls back to empty, the amount to zero. One bad row must not abort a
// batch; callers skip on an empty identifier where identity matters.
func RecordKey(row models.Row, idColumn, amountColumn string) Key {
	key := Key{Amount: decimal.Zero}

	if idColumn != "" {
		if v, ok := row.Get(idColumn); ok {
			key.ID = DigitsOnly(v.String())
		}
	}

	if amountColumn != "" {
		if v, ok := row.Get(amountColumn); ok {
			key.Amount = Amount(v)
		}
	}

	return key
}

// Amount normalizes a raw cell into a decimal amount. Numeric cells are
// used as-is. Anything else is stripped down to digits, comma and dot,
// with comma treated as the decimal separator; values that still don't
// parse normalize to zero.
func Amount(v models.FieldValue) decimal.Decimal {
	if v.Kind == models.FieldNumber {
		return decimal.NewFromFloat(v.Num)
	}

	raw := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			return r
		}
		return -1
	}, v.String())
	raw = strings.ReplaceAll(raw, ",", ".")

	// Spreadsheet exports mix thousands separators into the cleaned
	// string ("1.234.56"); take the longest numeric prefix like the
	// lenient parsers those exports were built for.
	prefix := numericPrefix(raw)
	if prefix == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func numericPrefix(s string) string {
	end := 0
	seenDot := false
	seenDigit := false
	for i, r := range s {
		if r == '.' {
			if seenDot {
				break
			}
			seenDot = true
			end = i + 1
			continue
		}
		if !unicode.IsDigit(r) {
			break
		}
		seenDigit = true
		end = i + 1
	}
	if !seenDigit {
		return ""
	}
	return strings.TrimSuffix(s[:end], ".")
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// displayNameTerms are matched against folded column names when resolving
// a counterparty's display name.
var displayNameTerms = []string{"razon social", "denominacion", "nombre"}

// DisplayName resolves a human-readable counterparty name by scanning the
// row's column names for a business-name convention, case and diacritic
// insensitively. Falls back to the "N/A" sentinel.
func DisplayName(row models.Row) string {
	for _, column := range row.Columns {
		folded := Fold(column)
		for _, term := range displayNameTerms {
			if strings.Contains(folded, term) {
				if v, ok := row.Get(column); ok {
					return v.String()
				}
			}
		}
	}
	return models.DisplayNameUnavailable
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, strips diacritics and trims a column name
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(strings.ToLower(folded))
}
