// Package schema defines the expected shape of the QuickBooks sales export:
// the column set, per-column validation rules, and header indexing.
package schema

import "strings"

// FieldType represents the expected data type for a CSV field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldNumeric
)

// FieldSpec defines validation rules for a single CSV column.
type FieldSpec struct {
	Name       string    // Column header name (must match CSV exactly)
	Type       FieldType // Expected data type
	Required   bool      // Cell must be present and non-empty
	AllowEmpty bool      // If true, empty values are allowed even when Required
}

// Column names of the QuickBooks sales detail export.
const (
	ColType            = "Type"
	ColDate            = "Date"
	ColNum             = "Num"
	ColSourceName      = "Source Name"
	ColNameAddress     = "Name Address"
	ColNameContact     = "Name Contact"
	ColNamePhone       = "Name Phone #"
	ColNameEmail       = "Name E-Mail"
	ColMemo            = "Memo"
	ColName            = "Name"
	ColItem            = "Item"
	ColItemDescription = "Item Description"
	ColQty             = "Qty"
	ColSalesPrice      = "Sales Price"
	ColAmount          = "Amount"
)

// SalesFieldSpecs defines the expected CSV columns for the QuickBooks sales
// detail export. Contact fields are optional at this level; whether a row may
// omit them depends on its source (Amazon FBA rows carry no contact info) and
// is decided during entity resolution.
var SalesFieldSpecs = []FieldSpec{
	{Name: ColType, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColDate, Type: FieldDate, Required: true},
	{Name: ColNum, Type: FieldText, Required: true},
	{Name: ColSourceName, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColNameAddress, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColNameContact, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColNamePhone, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColNameEmail, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColMemo, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColName, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColItem, Type: FieldText, Required: true},
	{Name: ColItemDescription, Type: FieldText, Required: false, AllowEmpty: true},
	{Name: ColQty, Type: FieldNumeric, Required: true},
	{Name: ColSalesPrice, Type: FieldNumeric, Required: true},
	{Name: ColAmount, Type: FieldNumeric, Required: true},
}

// RequiredColumns returns the names of columns that must exist in the header.
func RequiredColumns() []string {
	cols := make([]string, 0, len(SalesFieldSpecs))
	for _, spec := range SalesFieldSpecs {
		cols = append(cols, spec.Name)
	}
	return cols
}

// HeaderIndex maps column names (lowercase) to their position in a CSV row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. A leading unnamed index
// column simply maps "" to position 0 and is never looked up.
func MakeHeaderIndex(header []string, clean func(string) string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		if clean != nil {
			h = clean(h)
		}
		idx[strings.ToLower(h)] = i
	}
	return idx
}

// Cell returns the cleaned cell value for a named column, or "" when the
// column is absent or the row is too short.
func (idx HeaderIndex) Cell(row []string, name string, clean func(string) string) string {
	pos, ok := idx[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	v := row[pos]
	if clean != nil {
		v = clean(v)
	}
	return v
}
