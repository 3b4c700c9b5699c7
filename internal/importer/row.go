// Package importer implements the end-to-end pipeline: row parsing and
// validation, order aggregation, entity resolution against the store, and
// per-order-group atomic persistence with severity-routed error reporting.
package importer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halverson/salesimport/internal/csvio"
	"github.com/halverson/salesimport/internal/extract"
	"github.com/halverson/salesimport/internal/schema"
)

// RawRow is one CSV line with named fields, created once per line and
// immutable afterwards.
type RawRow struct {
	Line int // 1-based line number in the input file

	Type            string
	Date            string
	Num             string
	SourceName      string
	NameAddress     string
	NameContact     string
	NamePhone       string
	NameEmail       string
	Memo            string
	Name            string
	Item            string
	ItemDescription string
	Qty             string
	SalesPrice      string
	Amount          string
}

// RowFromRecord extracts a RawRow from a CSV record using the header index.
// Cells are cleaned of export artifacts; absent columns read as "".
func RowFromRecord(record []string, idx schema.HeaderIndex, line int) RawRow {
	cell := func(name string) string {
		return idx.Cell(record, name, csvio.CleanCell)
	}
	return RawRow{
		Line:            line,
		Type:            cell(schema.ColType),
		Date:            cell(schema.ColDate),
		Num:             cell(schema.ColNum),
		SourceName:      cell(schema.ColSourceName),
		NameAddress:     cell(schema.ColNameAddress),
		NameContact:     cell(schema.ColNameContact),
		NamePhone:       cell(schema.ColNamePhone),
		NameEmail:       cell(schema.ColNameEmail),
		Memo:            cell(schema.ColMemo),
		Name:            cell(schema.ColName),
		Item:            cell(schema.ColItem),
		ItemDescription: cell(schema.ColItemDescription),
		Qty:             cell(schema.ColQty),
		SalesPrice:      cell(schema.ColSalesPrice),
		Amount:          cell(schema.ColAmount),
	}
}

// field returns the raw value for a schema column name.
func (r RawRow) field(name string) string {
	switch name {
	case schema.ColType:
		return r.Type
	case schema.ColDate:
		return r.Date
	case schema.ColNum:
		return r.Num
	case schema.ColSourceName:
		return r.SourceName
	case schema.ColNameAddress:
		return r.NameAddress
	case schema.ColNameContact:
		return r.NameContact
	case schema.ColNamePhone:
		return r.NamePhone
	case schema.ColNameEmail:
		return r.NameEmail
	case schema.ColMemo:
		return r.Memo
	case schema.ColName:
		return r.Name
	case schema.ColItem:
		return r.Item
	case schema.ColItemDescription:
		return r.ItemDescription
	case schema.ColQty:
		return r.Qty
	case schema.ColSalesPrice:
		return r.SalesPrice
	case schema.ColAmount:
		return r.Amount
	default:
		return ""
	}
}

// OrderLine is a RawRow after field extraction: numeric quantity and money
// values, parsed date, split email list. Address components, channel, and
// SKU are extracted later, at the point in group processing where their
// failures acquire the right severity.
type OrderLine struct {
	RawRow

	OrderDate time.Time
	Quantity  int
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	Emails    []string
}

// ParseRow validates a RawRow against the sales field specs and converts its
// typed fields. Failures wrap ErrRowInvalid: the row is unusable, but only
// this row.
func ParseRow(raw RawRow) (OrderLine, error) {
	for _, spec := range schema.SalesFieldSpecs {
		if spec.Required && !spec.AllowEmpty && raw.field(spec.Name) == "" {
			return OrderLine{}, fmt.Errorf("%w: empty required field %q", ErrRowInvalid, spec.Name)
		}
	}

	date, err := schema.ParseDate(raw.Date)
	if err != nil {
		return OrderLine{}, fmt.Errorf("%w: field %q: %v", ErrRowInvalid, schema.ColDate, err)
	}

	qty, err := schema.ParseQuantity(raw.Qty)
	if err != nil {
		return OrderLine{}, fmt.Errorf("%w: field %q: %v", ErrRowInvalid, schema.ColQty, err)
	}

	price, err := schema.ParseDecimal(raw.SalesPrice)
	if err != nil {
		return OrderLine{}, fmt.Errorf("%w: field %q: %v", ErrRowInvalid, schema.ColSalesPrice, err)
	}

	amount, err := schema.ParseDecimal(raw.Amount)
	if err != nil {
		return OrderLine{}, fmt.Errorf("%w: field %q: %v", ErrRowInvalid, schema.ColAmount, err)
	}

	return OrderLine{
		RawRow:    raw,
		OrderDate: date,
		Quantity:  qty,
		UnitPrice: price,
		Amount:    amount,
		Emails:    extract.SplitEmails(raw.NameEmail),
	}, nil
}
