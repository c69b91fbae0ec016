package features

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Numeric Kind = iota
	Categorical
)

// Value is one field of an input row: either a number or a category label.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

func Number(v float64) Value { return Value{Kind: Numeric, Num: v} }

func Int(v int) Value { return Number(float64(v)) }

func Bool(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func Category(s string) Value { return Value{Kind: Categorical, Str: s} }

// Row is a single record keyed by field name, before one-hot expansion.
type Row map[string]Value

func (r Row) clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// InferValue types a raw cell the way a CSV reader would: booleans and
// numbers become numeric, anything else is a category. Empty cells are
// reported as missing.
func InferValue(cell string) (Value, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return Value{}, false
	}
	switch cell {
	case "True", "true", "TRUE":
		return Bool(true), true
	case "False", "false", "FALSE":
		return Bool(false), true
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return Number(f), true
	}
	return Category(cell), true
}

// RowFromStrings builds a Row from parallel header and cell slices.
func RowFromStrings(header, cells []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if i >= len(cells) {
			break
		}
		name = strings.TrimSpace(name)
		if v, ok := InferValue(cells[i]); ok && name != "" {
			row[name] = v
		}
	}
	return row
}

// RowFromMap builds a Row from decoded JSON: numbers and bools are numeric,
// strings are inferred like CSV cells, and nulls are missing.
func RowFromMap(m map[string]any) Row {
	row := make(Row, len(m))
	for name, raw := range m {
		switch v := raw.(type) {
		case float64:
			row[name] = Number(v)
		case int:
			row[name] = Int(v)
		case bool:
			row[name] = Bool(v)
		case string:
			if val, ok := InferValue(v); ok {
				row[name] = val
			}
		}
	}
	return row
}
