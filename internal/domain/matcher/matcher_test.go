package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a single-charge purchase order
func makeOrder(id string, amount float64, date string) Order {
	return Order{
		ID:   id,
		Date: date,
		Charges: []OrderCharge{
			{
				Amount: amount,
				Date:   date,
				Items:  []Item{{OrderID: id, Title: "item for " + id, Price: amount}},
			},
		},
	}
}

// Helper to create test ledger transaction
func makeTransaction(id string, amount float64, date string) LedgerTransaction {
	return LedgerTransaction{
		ID:     id,
		Amount: amount,
		Date:   date,
	}
}

func TestMatcher_ExactMatch(t *testing.T) {
	// Arrange
	orders := []Order{makeOrder("order1", 42.00, "2024-01-10")}
	transactions := []LedgerTransaction{makeTransaction("tx1", -42.00, "2024-01-12")}

	// Act
	pairs := MatchTransactions(transactions, orders, Config{WindowDays: 7})

	// Assert
	require.Len(t, pairs, 1)
	assert.Equal(t, "tx1", pairs[0].Ledger.ID)
	assert.Equal(t, "order1", pairs[0].Charge.OrderID)
	assert.Equal(t, -42.00, pairs[0].Charge.SignedAmount)
	require.Len(t, pairs[0].Charge.Items, 1)
	assert.Equal(t, "item for order1", pairs[0].Charge.Items[0].Title)
}

func TestMatcher_OutsideWindow_NoMatch(t *testing.T) {
	orders := []Order{makeOrder("order1", 42.00, "2024-01-10")}
	transactions := []LedgerTransaction{makeTransaction("tx1", -42.00, "2024-01-12")}

	pairs := MatchTransactions(transactions, orders, Config{WindowDays: 1})

	assert.Empty(t, pairs)
}

func TestMatcher_WindowBoundsInclusive(t *testing.T) {
	orders := []Order{makeOrder("order1", 10.00, "2024-03-10")}

	tests := []struct {
		name    string
		date    string
		matches bool
	}{
		{"exactly window days after", "2024-03-17", true},
		{"exactly window days before", "2024-03-03", true},
		{"one day past upper bound", "2024-03-18", false},
		{"one day before lower bound", "2024-03-02", false},
		{"same day", "2024-03-10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transactions := []LedgerTransaction{makeTransaction("tx1", -10.00, tt.date)}

			pairs := MatchTransactions(transactions, orders, Config{WindowDays: 7})

			if tt.matches {
				assert.Len(t, pairs, 1)
			} else {
				assert.Empty(t, pairs)
			}
		})
	}
}

func TestMatcher_TieGoesToFirstSeenCharge(t *testing.T) {
	// Both charges are one day away from the ledger date
	orders := []Order{
		makeOrder("first", 20.00, "2024-02-01"),
		makeOrder("second", 20.00, "2024-02-03"),
	}
	transactions := []LedgerTransaction{makeTransaction("tx1", -20.00, "2024-02-02")}

	pairs := MatchTransactions(transactions, orders, Config{WindowDays: 7})

	require.Len(t, pairs, 1)
	assert.Equal(t, "first", pairs[0].Charge.OrderID)
	assert.Equal(t, "2024-02-01", pairs[0].Charge.Date)
}

func TestMatcher_MultipleCandidates_PicksClosestDate(t *testing.T) {
	orders := []Order{
		makeOrder("plus3", 100.00, "2025-10-13"),
		makeOrder("plus1", 100.00, "2025-10-11"),
		makeOrder("minus2", 100.00, "2025-10-08"),
	}
	transactions := []LedgerTransaction{makeTransaction("tx1", -100.00, "2025-10-10")}

	pairs := MatchTransactions(transactions, orders, DefaultConfig())

	require.Len(t, pairs, 1)
	assert.Equal(t, "plus1", pairs[0].Charge.OrderID)
}

func TestMatcher_ExistingNotes_ConsumesChargeWithoutPair(t *testing.T) {
	// Arrange - the first transaction already has notes, the second is a duplicate
	orders := []Order{makeOrder("order1", 15.00, "2024-05-01")}
	withNotes := makeTransaction("tx1", -15.00, "2024-05-02")
	withNotes.Notes = "existing note"
	duplicate := makeTransaction("tx2", -15.00, "2024-05-02")

	// Act
	result := New(Config{WindowDays: 7}).Match([]LedgerTransaction{withNotes, duplicate}, Flatten(orders))

	// Assert - no pairs, and the duplicate did not get the consumed charge
	assert.Empty(t, result.Pairs)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, OutcomeNotesPresent, result.Outcomes[0].Outcome)
	assert.Equal(t, 0, result.Outcomes[0].ChargeIndex)
	assert.Equal(t, OutcomeNoEligibleCharge, result.Outcomes[1].Outcome)
	assert.Equal(t, -1, result.Outcomes[1].ChargeIndex)
}

func TestMatcher_OverrideNotes(t *testing.T) {
	orders := []Order{makeOrder("order1", 15.00, "2024-05-01")}
	tx := makeTransaction("tx1", -15.00, "2024-05-02")
	tx.Notes = "existing note"

	pairs := MatchTransactions([]LedgerTransaction{tx}, orders, Config{WindowDays: 7, OverrideNotes: true})

	require.Len(t, pairs, 1)
	assert.Equal(t, "existing note", pairs[0].Ledger.Notes)
}

func TestMatcher_EmptyInputs(t *testing.T) {
	orders := []Order{makeOrder("order1", 15.00, "2024-05-01")}
	transactions := []LedgerTransaction{makeTransaction("tx1", -15.00, "2024-05-01")}

	t.Run("empty ledger", func(t *testing.T) {
		pairs := MatchTransactions(nil, orders, DefaultConfig())
		assert.NotNil(t, pairs)
		assert.Empty(t, pairs)
	})

	t.Run("empty orders", func(t *testing.T) {
		pairs := MatchTransactions(transactions, nil, DefaultConfig())
		assert.NotNil(t, pairs)
		assert.Empty(t, pairs)
	})

	t.Run("order without charges", func(t *testing.T) {
		pairs := MatchTransactions(transactions, []Order{{ID: "bare", Date: "2024-05-01"}}, DefaultConfig())
		assert.Empty(t, pairs)
	})
}

func TestMatcher_Refunds(t *testing.T) {
	// Refunds keep their positive sign and match positive ledger credits
	orders := []Order{
		{
			ID:   "order1",
			Date: "2024-06-01",
			Charges: []OrderCharge{
				{Amount: 30.00, Date: "2024-06-01"},
				{Amount: 12.50, Date: "2024-06-10", Refund: true},
			},
		},
	}
	transactions := []LedgerTransaction{
		makeTransaction("credit", 12.50, "2024-06-11"),
		makeTransaction("debit", -30.00, "2024-06-02"),
		makeTransaction("wrong-sign", -12.50, "2024-06-11"),
	}

	pairs := MatchTransactions(transactions, orders, DefaultConfig())

	require.Len(t, pairs, 2)
	assert.Equal(t, "credit", pairs[0].Ledger.ID)
	assert.Equal(t, 12.50, pairs[0].Charge.SignedAmount)
	assert.Equal(t, "debit", pairs[1].Ledger.ID)
	assert.Equal(t, -30.00, pairs[1].Charge.SignedAmount)
}

func TestMatcher_InvalidDates(t *testing.T) {
	orders := []Order{
		makeOrder("bad-date", 5.00, "not a date"),
		makeOrder("good-date", 5.00, "2024-07-01"),
	}

	t.Run("charge with invalid date is skipped", func(t *testing.T) {
		transactions := []LedgerTransaction{makeTransaction("tx1", -5.00, "2024-07-01")}

		pairs := MatchTransactions(transactions, orders, DefaultConfig())

		require.Len(t, pairs, 1)
		assert.Equal(t, "good-date", pairs[0].Charge.OrderID)
	})

	t.Run("ledger transaction with invalid date never matches", func(t *testing.T) {
		transactions := []LedgerTransaction{makeTransaction("tx1", -5.00, "")}

		result := New(DefaultConfig()).Match(transactions, Flatten(orders))

		assert.Empty(t, result.Pairs)
		assert.Equal(t, 1, result.Count(OutcomeInvalidDate))
	})
}

func TestMatcher_AlternateDateLayouts(t *testing.T) {
	// Walmart and Amazon report dates as "Jan 02, 2024" / "January 2, 2024"
	orders := []Order{
		makeOrder("walmart", 8.00, "Jan 02, 2024"),
		makeOrder("amazon", 9.00, "January 3, 2024"),
	}
	transactions := []LedgerTransaction{
		makeTransaction("a", -8.00, "2024-01-04"),
		makeTransaction("b", -9.00, "2024-01-04"),
	}

	pairs := MatchTransactions(transactions, orders, Config{WindowDays: 2})

	require.Len(t, pairs, 2)
	assert.Equal(t, "walmart", pairs[0].Charge.OrderID)
	assert.Equal(t, "amazon", pairs[1].Charge.OrderID)
}

func TestMatcher_OutputSortedByLedgerID(t *testing.T) {
	orders := []Order{
		makeOrder("o1", 1.00, "2024-01-01"),
		makeOrder("o2", 2.00, "2024-01-01"),
		makeOrder("o3", 3.00, "2024-01-01"),
	}
	transactions := []LedgerTransaction{
		makeTransaction("300", -3.00, "2024-01-01"),
		makeTransaction("100", -1.00, "2024-01-01"),
		makeTransaction("200", -2.00, "2024-01-01"),
	}

	pairs := MatchTransactions(transactions, orders, DefaultConfig())

	require.Len(t, pairs, 3)
	assert.Equal(t, "100", pairs[0].Ledger.ID)
	assert.Equal(t, "200", pairs[1].Ledger.ID)
	assert.Equal(t, "300", pairs[2].Ledger.ID)
}

func TestMatcher_DoesNotMutateInputs(t *testing.T) {
	orders := []Order{makeOrder("order1", 15.00, "2024-05-01")}
	charges := Flatten(orders)
	transactions := []LedgerTransaction{makeTransaction("tx1", -15.00, "2024-05-01")}
	m := New(DefaultConfig())

	first := m.Match(transactions, charges)
	second := m.Match(transactions, charges)

	// Usage is local to each call, so the same arena can be matched again
	assert.Len(t, first.Pairs, 1)
	assert.Len(t, second.Pairs, 1)
}

// Exact equality is intentional: amounts that only differ by floating-point
// drift do not match. Changing this needs a product decision.
func TestMatcher_AmountEqualityIsExact(t *testing.T) {
	// Summed at runtime so the result carries float64 rounding
	a, b := 0.1, 0.2
	transactions := []LedgerTransaction{makeTransaction("tx1", -0.3, "2024-01-01")}

	drifted := MatchTransactions(transactions, []Order{makeOrder("order1", a+b, "2024-01-01")}, DefaultConfig())
	exact := MatchTransactions(transactions, []Order{makeOrder("order1", 0.3, "2024-01-01")}, DefaultConfig())

	assert.Empty(t, drifted, "0.1+0.2 != 0.3 in float64; matching stays exact")
	require.Len(t, exact, 1)
	assert.Equal(t, -0.3, exact[0].Charge.SignedAmount)
}

func TestMatcher_LargeWindow(t *testing.T) {
	order := Order{
		ID:   "order1",
		Date: "2024-01-01",
		Charges: []OrderCharge{
			{Amount: 5.00, Date: "2024-01-05", Items: []Item{{OrderID: "order1", Title: "widget", Price: 5.00}}},
		},
	}
	transactions := []LedgerTransaction{
		makeTransaction("tx1", -5.00, "2024-01-04"),
		makeTransaction("tx2", -7.00, "1900-01-01"),
	}

	pairs := MatchTransactions(transactions, []Order{order, makeOrder("order2", 7.00, "2099-12-31")}, Config{WindowDays: 200000})

	require.Len(t, pairs, 2)
	assert.Equal(t, "order1", pairs[0].Charge.OrderID)
	assert.Equal(t, "order2", pairs[1].Charge.OrderID)
}

func TestMatcher_ZeroWindow(t *testing.T) {
	orders := []Order{makeOrder("order1", 15.00, "2024-05-01")}

	sameDay := MatchTransactions([]LedgerTransaction{makeTransaction("tx1", -15.00, "2024-05-01")}, orders, Config{})
	nextDay := MatchTransactions([]LedgerTransaction{makeTransaction("tx1", -15.00, "2024-05-02")}, orders, Config{})

	assert.Len(t, sameDay, 1)
	assert.Empty(t, nextDay)
}

func TestResult_Count(t *testing.T) {
	result := &Result{Outcomes: []LedgerOutcome{
		{Outcome: OutcomeMatched},
		{Outcome: OutcomeMatched},
		{Outcome: OutcomeNoEligibleCharge},
	}}

	assert.Equal(t, 2, result.Count(OutcomeMatched))
	assert.Equal(t, 1, result.Count(OutcomeNoEligibleCharge))
	assert.Equal(t, 0, result.Count(OutcomeNotesPresent))
}
