package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Report is the complete account of one import run: totals, entity creation
// counts, and every error encountered. No failure is swallowed without a
// corresponding entry here.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	TotalRows        int `json:"total_rows"`
	RowsSkipped      int `json:"rows_skipped"`
	OrdersCreated    int `json:"orders_created"`
	OrdersSkipped    int `json:"orders_skipped"`
	LineItemsCreated int `json:"line_items_created"`
	PeopleCreated    int `json:"people_created"`
	CompaniesCreated int `json:"companies_created"`
	ProductsCreated  int `json:"products_created"`

	// Halted carries the batch-fatal error kind when the run stopped early,
	// "" for runs that processed the whole file.
	Halted Kind `json:"halted,omitempty"`

	Errors []ImportError `json:"errors"`
}

// record appends an error to the report.
func (r *Report) record(e ImportError) {
	r.Errors = append(r.Errors, e)
}

// ErrorCountsByKind returns how many errors of each kind occurred.
func (r *Report) ErrorCountsByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range r.Errors {
		counts[e.Kind]++
	}
	return counts
}

// Summary renders a human-readable account of the run for CLI output.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Import %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  rows read:          %d\n", r.TotalRows)
	fmt.Fprintf(&b, "  rows skipped:       %d\n", r.RowsSkipped)
	fmt.Fprintf(&b, "  orders created:     %d\n", r.OrdersCreated)
	fmt.Fprintf(&b, "  orders skipped:     %d\n", r.OrdersSkipped)
	fmt.Fprintf(&b, "  line items created: %d\n", r.LineItemsCreated)
	fmt.Fprintf(&b, "  people created:     %d\n", r.PeopleCreated)
	fmt.Fprintf(&b, "  companies created:  %d\n", r.CompaniesCreated)
	fmt.Fprintf(&b, "  products created:   %d\n", r.ProductsCreated)

	if r.Halted != "" {
		fmt.Fprintf(&b, "  HALTED: %s\n", r.Halted)
	}

	if len(r.Errors) > 0 {
		counts := r.ErrorCountsByKind()
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)

		fmt.Fprintf(&b, "  errors (%d):\n", len(r.Errors))
		for _, k := range kinds {
			fmt.Fprintf(&b, "    %-18s %d\n", k, counts[Kind(k)])
		}
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "    - %s\n", e.Error())
		}
	}

	return b.String()
}
