package matcher

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing charge and ledger dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// Flatten converts orders into the charge arena used for matching.
// Purchases are negated, refunds keep their sign. Items are shared, not copied.
func Flatten(orders []Order) []Charge {
	charges := make([]Charge, 0, len(orders))
	for _, order := range orders {
		for _, c := range order.Charges {
			amount := -c.Amount
			if c.Refund {
				amount = c.Amount
			}
			charges = append(charges, Charge{
				OrderID:      order.ID,
				Date:         c.Date,
				SignedAmount: amount,
				Items:        c.Items,
			})
		}
	}
	return charges
}

// ParseDate parses a date string into UTC midnight.
// Returns false if none of the supported layouts match.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == time.RFC3339 {
			return t.UTC(), true
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
