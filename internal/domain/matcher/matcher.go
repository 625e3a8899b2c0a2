// Package matcher pairs budgeting-ledger transactions with retailer order charges.
//
// The matcher uses strict matching criteria:
//   - Charge signed amount must equal the ledger amount exactly
//   - Ledger date must be within WindowDays of the charge date (inclusive)
//   - Charge must not already be used in this run
//
// Among eligible charges the closest by date wins; exact ties go to the
// charge seen first. Each ledger transaction is visited once, in input order.
//
// Example usage:
//
//	pairs := matcher.MatchTransactions(transactions, orders, matcher.DefaultConfig())
//	for _, p := range pairs {
//		// p.Ledger was matched to p.Charge
//	}
package matcher

import (
	"slices"
	"strings"
	"time"
)

// Matcher matches ledger transactions with flattened charges
type Matcher struct {
	config Config
}

// New creates a new matcher with the given config
func New(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// MatchTransactions flattens orders and matches them against the ledger transactions.
// The returned pairs are sorted by ledger ID.
func MatchTransactions(transactions []LedgerTransaction, orders []Order, config Config) []MatchedPair {
	return New(config).Match(transactions, Flatten(orders)).Pairs
}

// Match runs a single matching pass. Neither slice is modified; charge usage
// is tracked locally and discarded when Match returns.
func (m *Matcher) Match(transactions []LedgerTransaction, charges []Charge) *Result {
	result := &Result{
		Pairs:    make([]MatchedPair, 0),
		Outcomes: make([]LedgerOutcome, 0, len(transactions)),
	}

	// Charge dates and window bounds are computed once; invalid entries are
	// never eligible. Calendar arithmetic keeps large windows from overflowing.
	chargeDates := make([]time.Time, len(charges))
	lowerBounds := make([]time.Time, len(charges))
	upperBounds := make([]time.Time, len(charges))
	validDate := make([]bool, len(charges))
	for i, c := range charges {
		chargeDates[i], validDate[i] = ParseDate(c.Date)
		lowerBounds[i] = chargeDates[i].AddDate(0, 0, -m.config.WindowDays)
		upperBounds[i] = chargeDates[i].AddDate(0, 0, m.config.WindowDays)
	}

	used := make([]bool, len(charges))

	for _, tx := range transactions {
		txDate, ok := ParseDate(tx.Date)
		if !ok {
			result.Outcomes = append(result.Outcomes, LedgerOutcome{
				LedgerID:    tx.ID,
				Outcome:     OutcomeInvalidDate,
				ChargeIndex: -1,
			})
			continue
		}

		best := -1
		var bestDistance time.Duration

		for i, c := range charges {
			if used[i] || !validDate[i] {
				continue
			}
			if c.SignedAmount != tx.Amount {
				continue
			}

			if txDate.Before(lowerBounds[i]) || txDate.After(upperBounds[i]) {
				continue
			}

			distance := txDate.Sub(chargeDates[i])
			if distance < 0 {
				distance = -distance
			}

			if best == -1 || distance < bestDistance {
				best = i
				bestDistance = distance
			}
		}

		if best == -1 {
			result.Outcomes = append(result.Outcomes, LedgerOutcome{
				LedgerID:    tx.ID,
				Outcome:     OutcomeNoEligibleCharge,
				ChargeIndex: -1,
			})
			continue
		}

		outcome := OutcomeNotesPresent
		if m.config.OverrideNotes || tx.Notes == "" {
			result.Pairs = append(result.Pairs, MatchedPair{
				Ledger: tx,
				Charge: charges[best],
			})
			outcome = OutcomeMatched
		}

		// Consumed even when the pair was suppressed by existing notes.
		used[best] = true

		result.Outcomes = append(result.Outcomes, LedgerOutcome{
			LedgerID:    tx.ID,
			Outcome:     outcome,
			ChargeIndex: best,
		})
	}

	slices.SortStableFunc(result.Pairs, func(a, b MatchedPair) int {
		return strings.Compare(a.Ledger.ID, b.Ledger.ID)
	})

	return result
}
