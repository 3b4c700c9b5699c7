// Package extract turns loosely formatted export fields into structured
// values: address components, sales-channel classification, product SKUs,
// and split email lists. All functions are pure; callers classify the
// sentinel errors to decide severity.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for extraction failures. Callers use errors.Is to route
// each failure to the right severity.
var (
	ErrAddressParse   = errors.New("address parse failed")
	ErrUnknownChannel = errors.New("unrecognized order number format")
	ErrNoSKU          = errors.New("no SKU in item field")
)

// Channel is the sales-source classification derived from the order number.
type Channel string

const (
	ChannelAmazon      Channel = "amazon"
	ChannelOnlineStore Channel = "online_store"
	ChannelInvoice     Channel = "invoice"

	// ChannelLegacy marks pre-existing orders backfilled during schema
	// migration. The pipeline never produces it.
	ChannelLegacy Channel = "legacy"
)

// Order-number patterns, checked in order; first match wins.
var (
	amazonOrderRegex  = regexp.MustCompile(`^\d{3}-\d{7}`)
	onlineStoreRegex  = regexp.MustCompile(`^3D-\d{4}`)
	invoiceOrderRegex = regexp.MustCompile(`^A\d+`)
)

// ClassifyChannel determines the sales channel from the order number format.
// The order number itself is preserved verbatim by callers regardless of
// classification.
func ClassifyChannel(orderNumber string) (Channel, error) {
	switch {
	case amazonOrderRegex.MatchString(orderNumber):
		return ChannelAmazon, nil
	case onlineStoreRegex.MatchString(orderNumber):
		return ChannelOnlineStore, nil
	case invoiceOrderRegex.MatchString(orderNumber):
		return ChannelInvoice, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, orderNumber)
	}
}

// skuRegex captures the SKU token that precedes the parenthesized item
// description, e.g. "01-6310.38K (SP10-38 asphalt anchors...)".
var skuRegex = regexp.MustCompile(`^([\w\-\.]+)\s*\(`)

// ExtractSKU pulls the SKU out of the Item field.
func ExtractSKU(item string) (string, error) {
	m := skuRegex.FindStringSubmatch(strings.TrimSpace(item))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNoSKU, item)
	}
	return m[1], nil
}

// SplitEmails splits a raw email field on semicolons into an ordered list of
// candidate addresses. Whitespace around each entry is trimmed and empty
// entries dropped; a single-element result is the common case.
func SplitEmails(raw string) []string {
	parts := strings.Split(raw, ";")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}

// EmailDomain returns the lowercased domain of an email address, or "" when
// the address has no @.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
