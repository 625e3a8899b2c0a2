package amazon

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{name: "simple amount", input: "$116.20", expected: 116.20},
		{name: "amount with comma", input: "$1,234.56", expected: 1234.56},
		{name: "negative amount", input: "-$50.00", expected: -50.00},
		{name: "zero", input: "$0.00", expected: 0},
		{name: "empty string", input: "", expected: 0},
		{name: "with whitespace", input: "  $99.99  ", expected: 99.99},
		{name: "no currency symbol", input: "12.5", expected: 12.5},
		{name: "invalid", input: "not a number", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "ISO 8601", input: "2025-12-13", expected: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)},
		{name: "US format", input: "December 13, 2025", expected: time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)},
		{name: "empty string", input: "", wantErr: true},
		{name: "day first", input: "13/12/2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseCLIOutput(t *testing.T) {
	jsonData := `{
		"orders": [
			{
				"orderId": "114-9989668-3824210",
				"orderDate": "2025-12-13",
				"total": "$116.20",
				"items": [
					{ "name": "SUPFINE Magnetic iPhone Case", "price": "$14.99", "quantity": 1 },
					{ "name": "Phone Tripod", "price": "$25.64", "quantity": 1 }
				],
				"transactions": [
					{
						"date": "2025-12-13",
						"amount": "$116.20",
						"type": "charge",
						"last4": "1211",
						"description": "Prime Visa ****1211"
					}
				]
			}
		]
	}`

	output, err := ParseCLIOutput(strings.NewReader(jsonData))
	require.NoError(t, err)
	require.Len(t, output.Orders, 1)

	order := output.Orders[0]
	assert.Equal(t, "114-9989668-3824210", order.OrderID)
	assert.Equal(t, "$116.20", order.Total)
	assert.Len(t, order.Items, 2)
	require.Len(t, order.Transactions, 1)
	assert.Equal(t, "1211", order.Transactions[0].Last4)
}

func TestParseCLIOutput_InvalidJSON(t *testing.T) {
	_, err := ParseCLIOutput(strings.NewReader(`not valid json`))
	assert.Error(t, err)
}

func TestConvertCLIOrder(t *testing.T) {
	cliOrder := CLIOrder{
		OrderID:   "114-9989668-3824210",
		OrderDate: "2025-12-13",
		Total:     "$116.20",
		Items: []CLIOrderItem{
			{Name: "SUPFINE Magnetic iPhone Case", Price: "$14.99", Quantity: 1},
			{Name: " Phone Tripod ", Price: "$25.64", Quantity: 2},
		},
		Transactions: []CLITransaction{
			{Date: "2025-12-13", Amount: "$116.20", Type: "Charge", Last4: "1211"},
		},
	}

	order, err := ConvertCLIOrder(cliOrder)
	require.NoError(t, err)

	assert.Equal(t, "114-9989668-3824210", order.ID)
	assert.Equal(t, time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC), order.Date)
	assert.Equal(t, 116.20, order.Total)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Phone Tripod", order.Items[1].Name)
	assert.Equal(t, 25.64, order.Items[1].Price)
	assert.Equal(t, 2, order.Items[1].Quantity)

	require.Len(t, order.Transactions, 1)
	assert.Equal(t, txTypeCharge, order.Transactions[0].Type)
	assert.Equal(t, 116.20, order.Transactions[0].Amount)
}

func TestConvertCLIOrder_QuantityDefaultsToOne(t *testing.T) {
	order, err := ConvertCLIOrder(CLIOrder{
		OrderID:   "114-0000000-0000000",
		OrderDate: "2025-12-13",
		Total:     "$50.00",
		Items:     []CLIOrderItem{{Name: "Test Item", Price: "$50.00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, order.Items[0].Quantity)
}

func TestConvertCLIOrder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		order   CLIOrder
		wantMsg string
	}{
		{
			name:    "invalid date",
			order:   CLIOrder{OrderID: "x", OrderDate: "invalid-date", Total: "$50.00"},
			wantMsg: "parse order date",
		},
		{
			name:    "invalid total",
			order:   CLIOrder{OrderID: "x", OrderDate: "2025-12-13", Total: "not-a-number"},
			wantMsg: "parse total",
		},
		{
			name: "invalid item price",
			order: CLIOrder{OrderID: "x", OrderDate: "2025-12-13", Total: "$50.00",
				Items: []CLIOrderItem{{Name: "Bad Item", Price: "invalid", Quantity: 1}}},
			wantMsg: "Bad Item",
		},
		{
			name: "invalid transaction amount",
			order: CLIOrder{OrderID: "x", OrderDate: "2025-12-13", Total: "$50.00",
				Transactions: []CLITransaction{{Date: "2025-12-13", Amount: "invalid", Type: "charge"}}},
			wantMsg: "parse transaction 0 amount",
		},
		{
			name: "invalid transaction date",
			order: CLIOrder{OrderID: "x", OrderDate: "2025-12-13", Total: "$50.00",
				Transactions: []CLITransaction{{Date: "soon", Amount: "$1.00", Type: "charge"}}},
			wantMsg: "parse transaction 0 date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConvertCLIOrder(tt.order)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
