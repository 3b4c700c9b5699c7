package importer

import (
	"errors"
	"fmt"

	"github.com/halverson/salesimport/internal/extract"
	"github.com/halverson/salesimport/internal/store"
)

// Kind names a class of import failure. Kinds are the unit of severity
// routing and of grouping in the run report.
type Kind string

const (
	// KindRowInvalid: a row is structurally unusable (missing required cell,
	// malformed number or date). The row is dropped; its group still imports
	// from the remaining rows.
	KindRowInvalid Kind = "row_invalid"

	// KindAddressParse: the Name Address field could not be split into
	// street/state/ZIP components.
	KindAddressParse Kind = "address_parse"

	// KindUnknownChannel: the order number matches no known channel format.
	KindUnknownChannel Kind = "unknown_channel"

	// KindSKUExtraction: the Item field carries no parenthesized description
	// to anchor the SKU.
	KindSKUExtraction Kind = "sku_extraction"

	// KindOrderConsistency: rows sharing an order number disagree on
	// order-level fields.
	KindOrderConsistency Kind = "order_consistency"

	// KindMissingContact: a non-FBA row has no email to resolve a person by.
	KindMissingContact Kind = "missing_contact"

	// KindAmountMismatch: a line's reported amount disagrees with
	// quantity * unit price beyond the configured tolerance.
	KindAmountMismatch Kind = "amount_mismatch"

	// KindPersistence: the database rejected a write, typically a uniqueness
	// constraint (re-imported order number, race with an external writer).
	KindPersistence Kind = "persistence"
)

// Severity decides how far a failure propagates.
type Severity int

const (
	// SeverityWarning: recorded in the report; processing of the order
	// continues.
	SeverityWarning Severity = iota

	// SeverityRow: the offending order group is skipped; the run continues.
	SeverityRow

	// SeverityBatch: the entire run halts immediately. These kinds indicate
	// systemic input-format problems rather than isolated bad records.
	SeverityBatch
)

// Severity returns the severity for the kind.
//
// Unknown-channel failures are batch-fatal while address/SKU failures are
// row-fatal; the asymmetry is inherited from the source system and is a
// product decision, not an accident of this code.
func (k Kind) Severity() Severity {
	switch k {
	case KindMissingContact, KindUnknownChannel:
		return SeverityBatch
	case KindAmountMismatch:
		return SeverityWarning
	default:
		return SeverityRow
	}
}

// ImportError is one failure record. Created by any pipeline stage, never
// mutated afterwards, and only ever used for reporting.
type ImportError struct {
	Row         int    `json:"row"` // 1-based line number in the input file, 0 when order-scoped
	OrderNumber string `json:"order_number,omitempty"`
	Kind        Kind   `json:"kind"`
	Field       string `json:"field,omitempty"` // offending field value, when one exists
	Message     string `json:"message"`
}

func (e ImportError) Error() string {
	if e.OrderNumber != "" {
		return fmt.Sprintf("order %s: %s: %s", e.OrderNumber, e.Kind, e.Message)
	}
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Sentinel errors raised by pipeline stages that have no extractor sentinel
// of their own.
var (
	ErrRowInvalid       = errors.New("row is invalid")
	ErrOrderConsistency = errors.New("order rows disagree on order-level fields")
	ErrMissingContact   = errors.New("no email for non-FBA row")
)

// classify maps an error from a pipeline stage to its report kind.
// ok is false for errors outside the import-error taxonomy (infrastructure
// failures such as a lost database connection); those abort the run as-is.
func classify(err error) (Kind, bool) {
	switch {
	case errors.Is(err, ErrRowInvalid):
		return KindRowInvalid, true
	case errors.Is(err, extract.ErrAddressParse):
		return KindAddressParse, true
	case errors.Is(err, extract.ErrUnknownChannel):
		return KindUnknownChannel, true
	case errors.Is(err, extract.ErrNoSKU):
		return KindSKUExtraction, true
	case errors.Is(err, ErrOrderConsistency):
		return KindOrderConsistency, true
	case errors.Is(err, ErrMissingContact):
		return KindMissingContact, true
	case store.IsUniqueViolation(err):
		return KindPersistence, true
	default:
		return "", false
	}
}
