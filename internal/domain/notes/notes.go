// Package notes renders matched order items into ledger transaction notes.
package notes

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/shopspring/decimal"
)

// separator goes between item lines
const separator = "\n\n"

// Line formats one item as "$<price> - <orderId> - <title>".
func Line(item matcher.Item) string {
	price := decimal.NewFromFloat(item.Price).StringFixed(2)
	return fmt.Sprintf("$%s - %s - %s", price, item.OrderID, item.Title)
}

// Format builds the note text for a charge's items.
// Returns an empty string when there are no items.
func Format(items []matcher.Item) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line(item))
	}
	return strings.TrimSpace(strings.Join(lines, separator))
}

// NeedsUpdate reports whether note should be written over existing.
// Empty notes are never written, and identical notes are skipped.
func NeedsUpdate(existing, note string) bool {
	return note != "" && note != existing
}
