// Package graphql is a minimal JSON-over-HTTP GraphQL transport shared by the
// Costco order source and the Monarch ledger client.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned for 401/403 responses unless the client was
// configured with its own sentinel.
var ErrUnauthorized = errors.New("graphql: unauthorized")

// maxErrorBody caps how much of a failed response is kept in the error
const maxErrorBody = 512

// Request is a single GraphQL operation
type Request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Error is one entry of a GraphQL "errors" array
type Error struct {
	Message string `json:"message"`
}

// Errors is returned when the server answers 200 with an "errors" array
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors Errors          `json:"errors"`
}

// Config configures a Client
type Config struct {
	Endpoint string
	// Headers are set on every request.
	Headers    map[string]string
	HTTPClient *http.Client
	// Unauthorized replaces ErrUnauthorized in returned errors.
	Unauthorized error
}

// Client posts GraphQL operations to a single endpoint
type Client struct {
	endpoint     string
	headers      map[string]string
	http         *http.Client
	unauthorized error
}

// NewClient creates a new GraphQL client
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Unauthorized == nil {
		cfg.Unauthorized = ErrUnauthorized
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		headers:      cfg.Headers,
		http:         cfg.HTTPClient,
		unauthorized: cfg.Unauthorized,
	}
}

// Endpoint returns the URL operations are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do posts req and decodes the "data" field into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation(req), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", operation(req), c.unauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s returned status %d: %s", operation(req), resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation(req), err)
	}
	if len(decoded.Errors) > 0 {
		return decoded.Errors
	}
	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", operation(req), err)
	}
	return nil
}

func operation(req Request) string {
	if req.OperationName != "" {
		return req.OperationName
	}
	return "graphql"
}
