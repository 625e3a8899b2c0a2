package amazon

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/shopspring/decimal"
)

// ParseCLIOutput parses the JSON output from amazon-order-scraper
func ParseCLIOutput(r io.Reader) (*CLIOutput, error) {
	var output CLIOutput
	if err := json.NewDecoder(r).Decode(&output); err != nil {
		return nil, fmt.Errorf("failed to decode CLI output: %w", err)
	}
	return &output, nil
}

// ConvertCLIOrder validates a CLIOrder. Any unparseable amount or date
// fails the whole order so no line is silently dropped.
func ConvertCLIOrder(cliOrder CLIOrder) (*ParsedOrder, error) {
	order := &ParsedOrder{ID: cliOrder.OrderID}

	if cliOrder.OrderDate != "" {
		date, err := parseDate(cliOrder.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order date %q: %w", cliOrder.OrderDate, err)
		}
		order.Date = date
	}

	total, err := parseAmount(cliOrder.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total %q: %w", cliOrder.Total, err)
	}
	order.Total = total

	for i, cliItem := range cliOrder.Items {
		price, err := parseAmount(cliItem.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse item %d (%q): %w", i, cliItem.Name, err)
		}
		quantity := cliItem.Quantity
		if quantity == 0 {
			quantity = 1
		}
		order.Items = append(order.Items, ParsedOrderItem{
			Name:     strings.TrimSpace(cliItem.Name),
			Price:    price,
			Quantity: quantity,
			Refunded: cliItem.Refunded,
		})
	}

	for i, cliTx := range cliOrder.Transactions {
		tx := ParsedTransaction{
			Type:        strings.ToLower(strings.TrimSpace(cliTx.Type)),
			Last4:       cliTx.Last4,
			Description: cliTx.Description,
		}
		if cliTx.Date != "" {
			date, err := parseDate(cliTx.Date)
			if err != nil {
				return nil, fmt.Errorf("failed to parse transaction %d date %q: %w", i, cliTx.Date, err)
			}
			tx.Date = date
		}
		amount, err := parseAmount(cliTx.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction %d amount %q: %w", i, cliTx.Amount, err)
		}
		tx.Amount = amount
		order.Transactions = append(order.Transactions, tx)
	}

	return order, nil
}

// parseAmount parses a currency string like "$116.20", "-$5.00" or "$1,234.56".
// Empty input is zero.
func parseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, nil
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %w", err)
	}
	if negative {
		d = d.Neg()
	}

	f, _ := d.Float64()
	return f, nil
}

// parseDate accepts the layouts the matcher understands
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	t, ok := matcher.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unable to parse date %q", s)
	}
	return t, nil
}
