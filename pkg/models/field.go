package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FieldKind tags the raw value type of a spreadsheet cell
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldDate   FieldKind = "date"
)

// FieldValue is a single raw cell value with an explicit kind tag.
// Rows are schema-less; the kind tag is what lets the engine treat
// numeric cells as-is and parse everything else leniently.
type FieldValue struct {
	Kind FieldKind
	Str  string
	Num  float64
	Date time.Time
}

// StringField creates a string-kind field value
func StringField(s string) FieldValue {
	return FieldValue{Kind: FieldString, Str: s}
}

// NumberField creates a number-kind field value
func NumberField(n float64) FieldValue {
	return FieldValue{Kind: FieldNumber, Num: n}
}

// DateField creates a date-kind field value
func DateField(t time.Time) FieldValue {
	return FieldValue{Kind: FieldDate, Date: t}
}

// String renders the value the way it would appear in a cell
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case FieldDate:
		return v.Date.Format("2006-01-02")
	default:
		return v.Str
	}
}

type fieldValueJSON struct {
	Kind  FieldKind `json:"kind"`
	Value any       `json:"value"`
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	out := fieldValueJSON{Kind: v.Kind}
	switch v.Kind {
	case FieldNumber:
		out.Value = v.Num
	case FieldDate:
		out.Value = v.Date.Format(time.RFC3339)
	default:
		out.Value = v.Str
	}
	return json.Marshal(out)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw fieldValueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Kind = raw.Kind
	switch raw.Kind {
	case FieldNumber:
		n, ok := raw.Value.(float64)
		if !ok {
			return fmt.Errorf("number field holds %T", raw.Value)
		}
		v.Num = n
	case FieldDate:
		s, ok := raw.Value.(string)
		if !ok {
			return fmt.Errorf("date field holds %T", raw.Value)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		v.Date = t
	default:
		s, ok := raw.Value.(string)
		if !ok {
			return fmt.Errorf("string field holds %T", raw.Value)
		}
		v.Kind = FieldString
		v.Str = s
	}
	return nil
}

// Row is one ingested spreadsheet row: an ordered set of column names and
// their tagged values. Column order is preserved for rendering and export;
// JSON objects alone would lose it.
type Row struct {
	Columns []string              `json:"columns"`
	Values  map[string]FieldValue `json:"values"`
}

// NewRow creates an empty row
func NewRow() Row {
	return Row{Values: make(map[string]FieldValue)}
}

// Set appends the column on first write and stores the value
func (r *Row) Set(column string, value FieldValue) {
	if r.Values == nil {
		r.Values = make(map[string]FieldValue)
	}
	if _, exists := r.Values[column]; !exists {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = value
}

// Get returns the value for a column, if present
func (r Row) Get(column string) (FieldValue, bool) {
	v, ok := r.Values[column]
	return v, ok
}
