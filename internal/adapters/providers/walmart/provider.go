// Package walmart provides an OrderSource that reads walmart.com order
// history pages with a signed-in session cookie.
package walmart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/workerpool"
)

// DefaultBaseURL is the walmart.com origin
const DefaultBaseURL = "https://www.walmart.com"

// ErrNotLoggedIn is returned when the order page asks the user to sign in
var ErrNotLoggedIn = errors.New("walmart: not logged in")

// Config holds configuration for the Walmart provider
type Config struct {
	BaseURL string
	// Cookie is sent as-is on every request (copied from a signed-in browser).
	Cookie      string
	Concurrency int
	HTTPClient  *http.Client
}

// Provider implements providers.OrderSource for Walmart
type Provider struct {
	baseURL     string
	cookie      string
	concurrency int
	client      *http.Client
	logger      *slog.Logger
}

// NewProvider creates a new Walmart provider
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{
		baseURL:     cfg.BaseURL,
		cookie:      cfg.Cookie,
		concurrency: cfg.Concurrency,
		client:      cfg.HTTPClient,
		logger:      logger.With(slog.String("provider", providers.Walmart)),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providers.Walmart
}

// DisplayName returns the human-readable provider name
func (p *Provider) DisplayName() string {
	return "Walmart"
}

// MerchantSearchTerms returns the merchant names to search for in the ledger
func (p *Provider) MerchantSearchTerms() []string {
	return []string{"Walmart"}
}

// CheckAuth loads the order page and reports the sign-in state
func (p *Provider) CheckAuth(ctx context.Context) providers.AuthResult {
	page, err := p.orderList(ctx, 0)
	if err != nil {
		p.logger.Warn("auth check failed", slog.String("error", err.Error()))
		return providers.AuthResult{Status: providers.AuthFailure, Message: err.Error()}
	}
	if !page.SignedIn {
		return providers.AuthResult{Status: providers.AuthNotLoggedIn}
	}
	return providers.AuthResult{Status: providers.AuthSuccess, StartingYear: page.StartingYear}
}

// FetchOrders fetches the order list, then each order's details.
// Orders whose details fail to load are logged and skipped.
func (p *Provider) FetchOrders(ctx context.Context, opts providers.FetchOptions) ([]matcher.Order, error) {
	p.logger.Info("fetching orders",
		slog.Int("year", opts.Year),
		slog.Int("max_orders", opts.MaxOrders),
	)

	page, err := p.orderList(ctx, opts.Year)
	if err != nil {
		return nil, err
	}
	if !page.SignedIn {
		return nil, ErrNotLoggedIn
	}

	refs := page.Orders
	if opts.MaxOrders > 0 && len(refs) > opts.MaxOrders {
		refs = refs[:opts.MaxOrders]
	}

	p.logger.Debug("found orders on list page", slog.Int("count", len(refs)))

	results, err := workerpool.Map(ctx, p.concurrency, refs, p.orderDetails)
	if err != nil {
		return nil, err
	}

	orders := make([]matcher.Order, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			p.logger.Warn("failed to fetch order details, skipping",
				slog.String("order_id", refs[i].ID),
				slog.String("error", res.Err.Error()),
			)
			continue
		}
		orders = append(orders, res.Value)
	}

	p.logger.Info("fetched orders", slog.Int("count", len(orders)))

	return orders, nil
}

func (p *Provider) orderList(ctx context.Context, year int) (*AccountPage, error) {
	q := url.Values{}
	if year > 0 {
		q.Set("timeFilter", fmt.Sprintf("year-%d", year))
	}

	body, err := p.get(ctx, "/orders", q)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return ParseOrderList(body)
}

func (p *Provider) orderDetails(ctx context.Context, ref OrderRef) (matcher.Order, error) {
	q := url.Values{}
	q.Set("storePurchase", fmt.Sprintf("%t", ref.StorePurchase))

	body, err := p.get(ctx, "/orders/"+url.PathEscape(ref.ID), q)
	if err != nil {
		return matcher.Order{}, err
	}
	defer body.Close()

	return ParseOrderDetails(body, ref)
}

func (p *Provider) get(ctx context.Context, path string, q url.Values) (io.ReadCloser, error) {
	u := p.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if p.cookie != "" {
		req.Header.Set("Cookie", p.cookie)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, ErrNotLoggedIn
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("request %s returned status %d", path, resp.StatusCode)
	}

	return resp.Body, nil
}

var _ providers.OrderSource = (*Provider)(nil)
