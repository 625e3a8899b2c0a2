package amazon

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multiShipmentOrder() *ParsedOrder {
	return &ParsedOrder{
		ID:    "112-4559127-2161020",
		Date:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Total: 111.30,
		Items: []ParsedOrderItem{
			{Name: "Desk lamp", Price: 52.55, Quantity: 1},
			{Name: "Bookshelf", Price: 50.72, Quantity: 1},
		},
		Transactions: []ParsedTransaction{
			{Amount: 52.55, Last4: "1211", Type: txTypeCharge, Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
			{Amount: 50.72, Last4: "1211", Type: txTypeCharge, Date: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
			{Amount: 8.03, Description: "Amazon Visa points", Type: txTypeCharge},
		},
	}
}

func TestToOrder_OneChargePerShipment(t *testing.T) {
	order := ToOrder(multiShipmentOrder(), nil)

	assert.Equal(t, "112-4559127-2161020", order.ID)
	assert.Equal(t, "2025-03-01", order.Date)
	require.Len(t, order.Charges, 2, "points payment must not become a charge")

	assert.Equal(t, 52.55, order.Charges[0].Amount)
	assert.Equal(t, "2025-03-02", order.Charges[0].Date)
	assert.False(t, order.Charges[0].Refund)
	assert.Equal(t, 50.72, order.Charges[1].Amount)
	assert.Equal(t, "2025-03-04", order.Charges[1].Date)

	require.Len(t, order.Charges[0].Items, 2)
	assert.Equal(t, matcher.Item{OrderID: "112-4559127-2161020", Title: "Desk lamp", Price: 52.55}, order.Charges[0].Items[0])
}

func TestToOrder_Refund(t *testing.T) {
	parsed := &ParsedOrder{
		ID:    "113-1",
		Date:  time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Items: []ParsedOrderItem{{Name: "Headphones", Price: 30, Refunded: true}},
		Transactions: []ParsedTransaction{
			{Amount: 30, Last4: "0001", Type: txTypeCharge, Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
			{Amount: -30, Type: txTypeRefund, Date: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)},
		},
	}

	order := ToOrder(parsed, nil)

	require.Len(t, order.Charges, 2)
	refund := order.Charges[1]
	assert.True(t, refund.Refund)
	assert.Equal(t, 30.0, refund.Amount, "refund amounts are stored unsigned")
	assert.Equal(t, "2025-01-20", refund.Date)
	assert.True(t, refund.Items[0].Refunded)

	charges := matcher.Flatten([]matcher.Order{order})
	assert.Equal(t, -30.0, charges[0].SignedAmount)
	assert.Equal(t, 30.0, charges[1].SignedAmount)
}

func TestToOrder_ChargeDateFallsBackToOrderDate(t *testing.T) {
	parsed := &ParsedOrder{
		ID:           "113-2",
		Date:         time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
		Transactions: []ParsedTransaction{{Amount: 12, Last4: "9999", Type: txTypeCharge}},
	}

	order := ToOrder(parsed, nil)

	require.Len(t, order.Charges, 1)
	assert.Equal(t, "2025-02-14", order.Charges[0].Date)
}

func TestToOrder_PendingOrderHasNoCharges(t *testing.T) {
	order := ToOrder(&ParsedOrder{ID: "113-3", Items: []ParsedOrderItem{{Name: "x", Price: 1}}}, nil)

	assert.Empty(t, order.Charges)
	assert.Empty(t, order.Date)
}

func TestToOrder_LogsMissingBankCharges(t *testing.T) {
	tests := []struct {
		name   string
		order  *ParsedOrder
		reason error
	}{
		{
			name:   "no transactions is pending",
			order:  &ParsedOrder{ID: "p"},
			reason: ErrPaymentPending,
		},
		{
			name: "gift card only",
			order: &ParsedOrder{
				ID:           "g",
				Transactions: []ParsedTransaction{{Amount: 50, Description: "Gift Card", Type: txTypeCharge}},
			},
			reason: ErrNonBankPayment,
		},
		{
			name: "refund only is pending",
			order: &ParsedOrder{
				ID:           "r",
				Transactions: []ParsedTransaction{{Amount: 5, Type: txTypeRefund}},
			},
			reason: ErrPaymentPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			order := ToOrder(tt.order, logger)

			for _, c := range order.Charges {
				assert.True(t, c.Refund, "only refunds may remain")
			}
			assert.Contains(t, buf.String(), "order has no bank charges")
			assert.Contains(t, buf.String(), tt.reason.Error())
		})
	}

	t.Run("bank charges are not reported", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		ToOrder(multiShipmentOrder(), logger)

		assert.NotContains(t, buf.String(), "order has no bank charges")
	})
}
