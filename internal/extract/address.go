package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Address holds the structured components of a free-text shipping address.
type Address struct {
	Street  string
	City    string
	State   string
	Zip     string
	Country string
}

// zipRegex matches a standard 5-digit ZIP with optional +4 extension.
var zipRegex = regexp.MustCompile(`(\d{5})(?:-\d{4})?`)

// ParseAddress parses a single-line address of the form
//
//	"<street>, <city>, <state> <zip>[-<zip+4>] [<country>]"
//
// The city segment and the country token are optional; defaultCountry fills
// in when the country is absent. Two-part addresses ("1 Main St, RI 02816 US")
// parse with an empty city rather than failing, matching how QuickBooks
// renders addresses without a city line.
func ParseAddress(raw, defaultCountry string) (Address, error) {
	raw = strings.Trim(raw, " ,")
	if raw == "" {
		return Address{}, fmt.Errorf("%w: empty address", ErrAddressParse)
	}

	zipMatch := zipRegex.FindStringSubmatch(raw)
	if zipMatch == nil {
		return Address{}, fmt.Errorf("%w: no ZIP code in %q", ErrAddressParse, raw)
	}
	zip := zipMatch[1]

	parts := splitTrim(raw, ",")
	if len(parts) < 2 {
		return Address{}, fmt.Errorf("%w: %q has no comma-separated segments", ErrAddressParse, raw)
	}

	// Last segment carries "<state> <zip...> [<country>]".
	tail := strings.Fields(parts[len(parts)-1])
	if len(tail) < 2 {
		return Address{}, fmt.Errorf("%w: %q has no state/ZIP segment", ErrAddressParse, raw)
	}

	addr := Address{
		Street:  parts[0],
		State:   tail[0],
		Zip:     zip,
		Country: defaultCountry,
	}

	if len(parts) > 2 {
		addr.City = parts[1]
	}

	// A token after the ZIP is the country.
	if last := tail[len(tail)-1]; len(tail) > 2 && !zipRegex.MatchString(last) {
		addr.Country = last
	}

	return addr, nil
}

// splitTrim splits on sep and trims whitespace from each part.
func splitTrim(s, sep string) []string {
	raw := strings.Split(s, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.TrimSpace(p))
	}
	return parts
}
