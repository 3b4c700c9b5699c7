package importer

import "fmt"

// OrderGroup is all parsed lines sharing one order number, aggregated into
// one logical order with N line items.
type OrderGroup struct {
	OrderNumber string
	Lines       []OrderLine
}

// First returns the group's first line in file order. Order-level fields
// (date, source, contact info) are read from it; the aggregation invariant
// guarantees the other lines agree.
func (g *OrderGroup) First() OrderLine {
	return g.Lines[0]
}

// GroupOrders groups lines by order number in a single pass, preserving the
// first-seen order of each number. Grouping is by key, not adjacency: a
// group is never split even when its rows are non-contiguous in the file.
func GroupOrders(lines []OrderLine) []*OrderGroup {
	byNum := make(map[string]*OrderGroup, len(lines))
	groups := make([]*OrderGroup, 0, len(lines))

	for _, line := range lines {
		g, ok := byNum[line.Num]
		if !ok {
			g = &OrderGroup{OrderNumber: line.Num}
			byNum[line.Num] = g
			groups = append(groups, g)
		}
		g.Lines = append(g.Lines, line)
	}

	return groups
}

// Validate checks the aggregation invariant: every line in the group must
// agree on the order-level fields. Line-level fields (item, quantity, price)
// are free to vary. A violation wraps ErrOrderConsistency and names the
// first disagreeing field.
func (g *OrderGroup) Validate() error {
	first := g.First()

	orderLevel := []struct {
		name string
		get  func(OrderLine) string
	}{
		{"Date", func(l OrderLine) string { return l.Date }},
		{"Source Name", func(l OrderLine) string { return l.SourceName }},
		{"Name E-Mail", func(l OrderLine) string { return l.NameEmail }},
		{"Name Phone #", func(l OrderLine) string { return l.NamePhone }},
		{"Name Contact", func(l OrderLine) string { return l.NameContact }},
		{"Name Address", func(l OrderLine) string { return l.NameAddress }},
	}

	for _, line := range g.Lines[1:] {
		for _, f := range orderLevel {
			if f.get(line) != f.get(first) {
				return fmt.Errorf("%w: field %q is %q on row %d but %q on row %d",
					ErrOrderConsistency, f.name, f.get(first), first.Line, f.get(line), line.Line)
			}
		}
	}

	return nil
}
