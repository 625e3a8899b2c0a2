package amazon

import "time"

// CLIOutput represents the JSON output from amazon-order-scraper CLI
type CLIOutput struct {
	Orders []CLIOrder `json:"orders"`
}

// CLIOrder represents an order from the CLI output
type CLIOrder struct {
	OrderID      string           `json:"orderId"`
	OrderDate    string           `json:"orderDate"` // ISO 8601: "2025-12-13"
	Total        string           `json:"total"`     // "$116.20"
	Items        []CLIOrderItem   `json:"items"`
	Transactions []CLITransaction `json:"transactions"`
}

// CLIOrderItem represents an item from the CLI output
type CLIOrderItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"` // "$14.99"
	Quantity int    `json:"quantity"`
	Refunded bool   `json:"refunded,omitempty"`
}

// CLITransaction represents a payment line from the CLI output
type CLITransaction struct {
	Date        string `json:"date"`   // ISO 8601: "2025-12-13"
	Amount      string `json:"amount"` // "$116.20"
	Type        string `json:"type"`   // "charge" or "refund"
	Last4       string `json:"last4"`
	Description string `json:"description"`
}

// Transaction types reported by the CLI
const (
	txTypeCharge = "charge"
	txTypeRefund = "refund"
)

// ParsedOrder is the validated form of a CLIOrder
type ParsedOrder struct {
	ID           string
	Date         time.Time
	Total        float64
	Items        []ParsedOrderItem
	Transactions []ParsedTransaction
}

// ParsedOrderItem is a validated order line
type ParsedOrderItem struct {
	Name     string
	Price    float64
	Quantity int
	Refunded bool
}

// ParsedTransaction is a validated payment line
type ParsedTransaction struct {
	Date        time.Time
	Amount      float64
	Type        string
	Last4       string
	Description string
}
