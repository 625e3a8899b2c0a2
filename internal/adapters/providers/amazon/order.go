package amazon

import (
	"errors"
	"log/slog"
	"math"

	"github.com/eshaffer321/itemize/internal/domain/matcher"
)

// ErrPaymentPending indicates an order has no bank charges yet because it hasn't shipped
var ErrPaymentPending = errors.New("payment pending: order has not been charged yet (awaiting shipment)")

// ErrNonBankPayment indicates an order was paid entirely with gift cards or points
var ErrNonBankPayment = errors.New("no bank charges found (order paid entirely with gift cards/points)")

const isoDate = "2006-01-02"

// ToOrder converts a parsed order into the matcher's order shape.
//
// Each bank charge becomes a purchase charge and each refund becomes a refund
// charge; all of them carry the order's items. Non-bank payments (points, gift
// cards) have no card digits and never reach the ledger, so they are dropped.
func ToOrder(parsed *ParsedOrder, logger *slog.Logger) matcher.Order {
	if logger == nil {
		logger = slog.Default()
	}

	items := make([]matcher.Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		items = append(items, matcher.Item{
			OrderID:  parsed.ID,
			Title:    item.Name,
			Price:    item.Price,
			Refunded: item.Refunded,
		})
	}

	order := matcher.Order{
		ID:   parsed.ID,
		Date: formatDate(parsed),
	}

	var purchases int
	var nonBank bool
	for _, tx := range parsed.Transactions {
		switch {
		case tx.Type == txTypeRefund:
			order.Charges = append(order.Charges, matcher.OrderCharge{
				Amount: math.Abs(tx.Amount),
				Date:   chargeDate(tx, parsed),
				Refund: true,
				Items:  items,
			})
		case tx.Amount <= 0:
			continue
		case tx.Last4 == "":
			nonBank = true
			logger.Debug("skipping non-bank transaction",
				slog.String("order_id", parsed.ID),
				slog.Float64("amount", tx.Amount),
				slog.String("description", tx.Description),
			)
		default:
			purchases++
			order.Charges = append(order.Charges, matcher.OrderCharge{
				Amount: tx.Amount,
				Date:   chargeDate(tx, parsed),
				Items:  items,
			})
		}
	}

	if purchases == 0 {
		reason := ErrPaymentPending
		if nonBank {
			reason = ErrNonBankPayment
		}
		logger.Debug("order has no bank charges",
			slog.String("order_id", parsed.ID),
			slog.String("reason", reason.Error()),
		)
	}

	return order
}

// chargeDate falls back to the order date when the payment line has none
func chargeDate(tx ParsedTransaction, parsed *ParsedOrder) string {
	if !tx.Date.IsZero() {
		return tx.Date.Format(isoDate)
	}
	return formatDate(parsed)
}

func formatDate(parsed *ParsedOrder) string {
	if parsed.Date.IsZero() {
		return ""
	}
	return parsed.Date.Format(isoDate)
}
