package matcher

// Config holds matcher configuration
type Config struct {
	WindowDays    int  // Days either side of the charge date (default: 7)
	OverrideNotes bool // Replace notes that are already populated
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WindowDays:    7,
		OverrideNotes: false,
	}
}

// Order is a retailer order as produced by an order source.
type Order struct {
	ID      string        `json:"id"`
	Date    string        `json:"date"`
	Charges []OrderCharge `json:"charges,omitempty"`
}

// OrderCharge is a single money movement on an order: a purchase charge or a refund.
// Amount is always the retailer-reported (positive) value.
type OrderCharge struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Refund bool    `json:"refund"`
	Items  []Item  `json:"items,omitempty"`
}

// Item is a line item attached to the charge that created it.
type Item struct {
	OrderID  string  `json:"order_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Refunded bool    `json:"refunded"`
}

// Charge is a flattened order charge ready for matching.
// SignedAmount follows the ledger convention: purchases negative, refunds positive.
type Charge struct {
	OrderID      string  `json:"order_id"`
	Date         string  `json:"date"`
	SignedAmount float64 `json:"signed_amount"`
	Items        []Item  `json:"items,omitempty"`
}

// LedgerTransaction is a budgeting-service transaction.
type LedgerTransaction struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Notes  string  `json:"notes"`
}

// MatchedPair binds a ledger transaction to the charge it was matched with.
type MatchedPair struct {
	Ledger LedgerTransaction `json:"ledger"`
	Charge Charge            `json:"charge"`
}

// Outcome describes what happened to a single ledger transaction during a match run.
type Outcome string

const (
	// OutcomeMatched means a pair was produced.
	OutcomeMatched Outcome = "matched"
	// OutcomeNotesPresent means an eligible charge existed (and was consumed)
	// but the transaction already has notes and override is off.
	OutcomeNotesPresent Outcome = "notes_present"
	// OutcomeNoEligibleCharge means no unused charge had the same amount within the window.
	OutcomeNoEligibleCharge Outcome = "no_eligible_charge"
	// OutcomeInvalidDate means the ledger transaction date could not be parsed.
	OutcomeInvalidDate Outcome = "invalid_date"
)

// LedgerOutcome records the outcome for one ledger transaction.
type LedgerOutcome struct {
	LedgerID    string  `json:"ledger_id"`
	Outcome     Outcome `json:"outcome"`
	ChargeIndex int     `json:"charge_index"` // -1 when no charge was selected
}

// Result contains match information
type Result struct {
	Pairs    []MatchedPair   // Sorted by ledger ID
	Outcomes []LedgerOutcome // One per ledger transaction, input order
}

// Count returns how many ledger transactions ended with the given outcome.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, lo := range r.Outcomes {
		if lo.Outcome == o {
			n++
		}
	}
	return n
}
