// Package costco provides an OrderSource backed by Costco's online order
// GraphQL API. Requests are authorized with a bearer token taken from a
// signed-in costco.com session.
package costco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/graphql"
	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/workerpool"
	"github.com/shopspring/decimal"
)

// DefaultEndpoint is Costco's order GraphQL endpoint
const DefaultEndpoint = "https://ecom-api.costco.com/ebusiness/order/v1/orders/graphql"

const (
	defaultWarehouse  = "847"
	defaultPageSize   = 10
	defaultLookback   = 3 // months
	couponPaymentType = "Coupon"
	costcoDateLayout  = "2006-01-02"
	clientIdentifier  = "481b1aec-aa3b-454b-b81b-48187e28f205"
	wcsClientID       = "4900eb1f-0c10-4bd9-99c3-c59e6c1ecebf"
)

// ErrUnauthorized is returned when the token is missing, expired or rejected
var ErrUnauthorized = errors.New("costco: unauthorized")

// Config holds configuration for the Costco provider
type Config struct {
	Endpoint        string
	Token           string
	WarehouseNumber string
	Concurrency     int
	HTTPClient      *http.Client
}

// Provider implements providers.OrderSource for Costco
type Provider struct {
	client      *graphql.Client
	hasToken    bool
	warehouse   string
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewProvider creates a new Costco provider
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.WarehouseNumber == "" {
		cfg.WarehouseNumber = defaultWarehouse
	}

	client := graphql.NewClient(graphql.Config{
		Endpoint: cfg.Endpoint,
		Headers: map[string]string{
			"Content-Type":           "application/json-patch+json",
			"costco-x-authorization": "Bearer " + cfg.Token,
			"client-identifier":      clientIdentifier,
			"costco-x-wcs-clientId":  wcsClientID,
			"costco.env":             "ecom",
			"costco.service":         "restOrders",
		},
		HTTPClient:   cfg.HTTPClient,
		Unauthorized: ErrUnauthorized,
	})

	return &Provider{
		client:      client,
		hasToken:    cfg.Token != "",
		warehouse:   cfg.WarehouseNumber,
		concurrency: cfg.Concurrency,
		logger:      logger.With(slog.String("provider", providers.Costco)),
		now:         time.Now,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providers.Costco
}

// DisplayName returns the human-readable name
func (p *Provider) DisplayName() string {
	return "Costco"
}

// MerchantSearchTerms returns the merchant names to search for in the ledger
func (p *Provider) MerchantSearchTerms() []string {
	return []string{"Costco"}
}

// CheckAuth issues a one-record order query to validate the token
func (p *Provider) CheckAuth(ctx context.Context) providers.AuthResult {
	if !p.hasToken {
		return providers.AuthResult{Status: providers.AuthNotLoggedIn, Message: "no costco token configured"}
	}

	end := p.now()
	_, err := p.onlineOrders(ctx, end.AddDate(0, -1, 0), end, 1, 1)
	switch {
	case errors.Is(err, ErrUnauthorized):
		return providers.AuthResult{Status: providers.AuthNotLoggedIn, Message: err.Error()}
	case err != nil:
		return providers.AuthResult{Status: providers.AuthFailure, Message: err.Error()}
	}
	return providers.AuthResult{Status: providers.AuthSuccess}
}

// FetchOrders lists online orders in the date range and loads each order's
// payments and line items.
func (p *Provider) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]matcher.Order, error) {
	if !p.hasToken {
		return nil, ErrUnauthorized
	}

	start, end := p.dateRange(opts)
	p.logger.Info("fetching orders",
		slog.Time("start_date", start),
		slog.Time("end_date", end),
		slog.Int("max_orders", opts.MaxOrders),
	)

	var refs []orderRef
	for page := 1; ; page++ {
		result, err := p.onlineOrders(ctx, start, end, page, defaultPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get online orders: %w", err)
		}
		for _, group := range result.Groups {
			refs = append(refs, group.Orders...)
		}
		if len(result.Groups) == 0 || page*defaultPageSize >= result.total() {
			break
		}
		if opts.MaxOrders > 0 && len(refs) >= opts.MaxOrders {
			break
		}
	}

	if opts.MaxOrders > 0 && len(refs) > opts.MaxOrders {
		refs = refs[:opts.MaxOrders]
	}

	results, err := workerpool.Map(ctx, p.concurrency, refs, p.orderDetails)
	if err != nil {
		return nil, err
	}

	orders := make([]matcher.Order, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			p.logger.Warn("failed to fetch order details, skipping",
				slog.String("order_id", refs[i].OrderNumber),
				slog.String("error", res.Err.Error()),
			)
			continue
		}
		orders = append(orders, res.Value)
	}

	p.logger.Info("fetched orders", slog.Int("total", len(orders)))

	return orders, nil
}

func (p *Provider) dateRange(opts providers.FetchOptions) (time.Time, time.Time) {
	start, end := opts.StartDate, opts.EndDate
	if opts.Year > 0 && start.IsZero() && end.IsZero() {
		start = time.Date(opts.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(opts.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = p.now()
	}
	if start.IsZero() {
		start = end.AddDate(0, -defaultLookback, 0)
	}
	return start, end
}

const onlineOrdersQuery = `
query getOnlineOrders($startDate:String!, $endDate:String!, $pageNumber:Int, $pageSize:Int, $warehouseNumber:String!) {
  getOnlineOrders(startDate:$startDate, endDate:$endDate, pageNumber:$pageNumber, pageSize:$pageSize, warehouseNumber:$warehouseNumber) {
    pageNumber
    pageSize
    totalNumberOfRecords
    bcOrders {
      orderPlacedDate : orderedDate
      orderNumber : sourceOrderNumber
      orderTotal
    }
  }
}`

const orderDetailsQuery = `
query getOrderDetails($orderNumbers: [String]) {
  getOrderDetails(orderNumbers: $orderNumbers) {
    orderNumber : sourceOrderNumber
    orderPlacedDate : orderedDate
    orderPayment {
      paymentType
      totalCharged
    }
    shipToAddress : orderShipTos {
      orderLineItems {
        itemDescription : sourceItemDescription
        price : unitPrice
        quantity : orderedTotalQuantity
        totalReturnedQuantity
      }
    }
  }
}`

type orderRef struct {
	OrderNumber     string `json:"orderNumber"`
	OrderPlacedDate string `json:"orderPlacedDate"`
}

type orderGroup struct {
	TotalNumberOfRecords int        `json:"totalNumberOfRecords"`
	Orders               []orderRef `json:"bcOrders"`
}

// orderGroups decodes either a list of groups or a single group
type orderGroups []orderGroup

func (g *orderGroups) UnmarshalJSON(data []byte) error {
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		var single orderGroup
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*g = orderGroups{single}
		return nil
	}
	var list []orderGroup
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*g = list
	return nil
}

type onlineOrdersResult struct {
	Groups orderGroups `json:"getOnlineOrders"`
}

func (r onlineOrdersResult) total() int {
	total := 0
	for _, g := range r.Groups {
		if g.TotalNumberOfRecords > total {
			total = g.TotalNumberOfRecords
		}
	}
	return total
}

type lineItem struct {
	Description           string          `json:"itemDescription"`
	Price                 decimal.Decimal `json:"price"`
	Quantity              decimal.Decimal `json:"quantity"`
	TotalReturnedQuantity decimal.Decimal `json:"totalReturnedQuantity"`
}

type payment struct {
	PaymentType  string          `json:"paymentType"`
	TotalCharged decimal.Decimal `json:"totalCharged"`
}

type orderDetail struct {
	OrderNumber     string    `json:"orderNumber"`
	OrderPlacedDate string    `json:"orderPlacedDate"`
	Payments        []payment `json:"orderPayment"`
	ShipTos         []struct {
		LineItems []lineItem `json:"orderLineItems"`
	} `json:"shipToAddress"`
}

func (p *Provider) onlineOrders(ctx context.Context, start, end time.Time, page, size int) (*onlineOrdersResult, error) {
	var result onlineOrdersResult
	err := p.client.Do(ctx, graphql.Request{
		Query: onlineOrdersQuery,
		Variables: map[string]any{
			"startDate":       start.Format(costcoDateLayout),
			"endDate":         end.Format(costcoDateLayout),
			"pageNumber":      page,
			"pageSize":        size,
			"warehouseNumber": p.warehouse,
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *Provider) orderDetails(ctx context.Context, ref orderRef) (matcher.Order, error) {
	var raw struct {
		Details json.RawMessage `json:"getOrderDetails"`
	}
	err := p.client.Do(ctx, graphql.Request{
		Query:     orderDetailsQuery,
		Variables: map[string]any{"orderNumbers": []string{ref.OrderNumber}},
	}, &raw)
	if err != nil {
		return matcher.Order{}, err
	}

	detail, err := decodeDetail(raw.Details, ref.OrderNumber)
	if err != nil {
		return matcher.Order{}, err
	}
	return p.toOrder(detail, ref), nil
}

// decodeDetail accepts either a single object or a list of orders
func decodeDetail(data json.RawMessage, orderNumber string) (*orderDetail, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("order %s not found", orderNumber)
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []orderDetail
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to decode order %s: %w", orderNumber, err)
		}
		for i := range list {
			if list[i].OrderNumber == orderNumber || len(list) == 1 {
				return &list[i], nil
			}
		}
		return nil, fmt.Errorf("order %s not found", orderNumber)
	}

	var detail orderDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", orderNumber, err)
	}
	return &detail, nil
}

func (p *Provider) toOrder(detail *orderDetail, ref orderRef) matcher.Order {
	id := detail.OrderNumber
	if id == "" {
		id = ref.OrderNumber
	}
	placed := detail.OrderPlacedDate
	if placed == "" {
		placed = ref.OrderPlacedDate
	}
	date := normalizeDate(placed)

	var items []matcher.Item
	for _, shipTo := range detail.ShipTos {
		for _, li := range shipTo.LineItems {
			price, _ := li.Price.Float64()
			items = append(items, matcher.Item{
				OrderID:  id,
				Title:    strings.TrimSpace(li.Description),
				Price:    price,
				Refunded: li.TotalReturnedQuantity.IsPositive(),
			})
		}
	}

	order := matcher.Order{ID: id, Date: date}
	for _, pay := range detail.Payments {
		if pay.PaymentType == couponPaymentType {
			p.logger.Debug("skipping coupon payment",
				slog.String("order_id", id),
				slog.String("amount", pay.TotalCharged.StringFixed(2)),
			)
			continue
		}
		amount, _ := pay.TotalCharged.Float64()
		order.Charges = append(order.Charges, matcher.OrderCharge{
			Amount: amount,
			Date:   date,
			Items:  items,
		})
	}
	return order
}

// normalizeDate reduces timestamps such as "2024-03-05T10:15:00" to their date
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if t, ok := matcher.ParseDate(s); ok {
		return t.Format(costcoDateLayout)
	}
	if len(s) >= len(costcoDateLayout) {
		if t, err := time.Parse(costcoDateLayout, s[:len(costcoDateLayout)]); err == nil {
			return t.Format(costcoDateLayout)
		}
	}
	return s
}

var _ providers.OrderSource = (*Provider)(nil)
