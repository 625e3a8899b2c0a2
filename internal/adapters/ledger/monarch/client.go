// Package monarch is a client for the Monarch Money GraphQL API, limited to
// what annotation needs: listing transactions and updating their notes.
package monarch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/graphql"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
)

// DefaultBaseURL is the Monarch GraphQL endpoint
const DefaultBaseURL = "https://api.monarchmoney.com/graphql"

// DefaultLimit caps the number of transactions returned per search
const DefaultLimit = 1000

const dateLayout = "2006-01-02"

var (
	// ErrUnauthorized is returned when the API key is missing or rejected
	ErrUnauthorized = errors.New("monarch: unauthorized")
	// ErrNoAPIKey is returned before any request when no key is configured
	ErrNoAPIKey = fmt.Errorf("%w: no API key configured", ErrUnauthorized)
)

// Config configures the client
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the Monarch API
type Client struct {
	gql    *graphql.Client
	hasKey bool
	logger *slog.Logger
}

// NewClient creates a new Monarch client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		gql: graphql.NewClient(graphql.Config{
			Endpoint:     cfg.BaseURL,
			Headers:      map[string]string{"Authorization": "Token " + cfg.APIKey},
			HTTPClient:   cfg.HTTPClient,
			Unauthorized: ErrUnauthorized,
		}),
		hasKey: cfg.APIKey != "",
		logger: logger.With(slog.String("client", "monarch")),
	}
}

// Query filters a transaction search
type Query struct {
	// Search is matched against merchant names by the API.
	Search    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

const transactionsQuery = `
query Web_GetTransactionsList($offset: Int, $limit: Int, $filters: TransactionFilterInput, $orderBy: TransactionOrdering) {
  allTransactions(filters: $filters) {
    totalCount
    results(offset: $offset, limit: $limit, orderBy: $orderBy) {
      id
      amount
      pending
      date
      notes
    }
  }
}`

const updateTransactionMutation = `
mutation Web_TransactionDrawerUpdateTransaction($input: UpdateTransactionMutationInput!) {
  updateTransaction(input: $input) {
    transaction {
      id
      amount
      pending
      date
    }
    errors {
      fieldErrors {
        field
        messages
      }
      message
      code
    }
  }
}`

type transaction struct {
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	Pending bool    `json:"pending"`
	Date    string  `json:"date"`
	Notes   *string `json:"notes"`
}

type transactionsResult struct {
	AllTransactions struct {
		TotalCount int           `json:"totalCount"`
		Results    []transaction `json:"results"`
	} `json:"allTransactions"`
}

type payloadError struct {
	Message     string `json:"message"`
	Code        string `json:"code"`
	FieldErrors []struct {
		Field    string   `json:"field"`
		Messages []string `json:"messages"`
	} `json:"fieldErrors"`
}

type updateResult struct {
	UpdateTransaction struct {
		Transaction *struct {
			ID string `json:"id"`
		} `json:"transaction"`
		Errors *payloadError `json:"errors"`
	} `json:"updateTransaction"`
}

// CheckAuth verifies the API key with a one-row transaction query
func (c *Client) CheckAuth(ctx context.Context) error {
	if !c.hasKey {
		return ErrNoAPIKey
	}
	_, err := c.GetTransactions(ctx, Query{Limit: 1})
	return err
}

// GetTransactions searches transactions, newest first
func (c *Client) GetTransactions(ctx context.Context, q Query) ([]matcher.LedgerTransaction, error) {
	if !c.hasKey {
		return nil, ErrNoAPIKey
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	filters := map[string]any{
		"search":     q.Search,
		"categories": []string{},
		"accounts":   []string{},
		"tags":       []string{},
	}
	if !q.StartDate.IsZero() {
		filters["startDate"] = q.StartDate.Format(dateLayout)
	}
	if !q.EndDate.IsZero() {
		filters["endDate"] = q.EndDate.Format(dateLayout)
	}

	var result transactionsResult
	err := c.gql.Do(ctx, graphql.Request{
		OperationName: "Web_GetTransactionsList",
		Query:         transactionsQuery,
		Variables: map[string]any{
			"orderBy": "date",
			"limit":   limit,
			"filters": filters,
		},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	txns := make([]matcher.LedgerTransaction, 0, len(result.AllTransactions.Results))
	for _, t := range result.AllTransactions.Results {
		lt := matcher.LedgerTransaction{
			ID:     t.ID,
			Amount: t.Amount,
			Date:   t.Date,
		}
		if t.Notes != nil {
			lt.Notes = *t.Notes
		}
		txns = append(txns, lt)
	}

	c.logger.Debug("fetched transactions",
		slog.String("search", q.Search),
		slog.Int("count", len(txns)),
		slog.Int("total_count", result.AllTransactions.TotalCount),
	)

	return txns, nil
}

// UpdateNotes replaces the notes of a single transaction
func (c *Client) UpdateNotes(ctx context.Context, id, notes string) error {
	if !c.hasKey {
		return ErrNoAPIKey
	}

	var result updateResult
	err := c.gql.Do(ctx, graphql.Request{
		OperationName: "Web_TransactionDrawerUpdateTransaction",
		Query:         updateTransactionMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"id":    id,
				"notes": notes,
			},
		},
	}, &result)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", id, err)
	}

	if perr := result.UpdateTransaction.Errors; perr != nil && (perr.Message != "" || len(perr.FieldErrors) > 0) {
		return fmt.Errorf("failed to update transaction %s: %s", id, perr.describe())
	}

	return nil
}

func (e *payloadError) describe() string {
	parts := make([]string, 0, 1+len(e.FieldErrors))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	for _, fe := range e.FieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, strings.Join(fe.Messages, ", ")))
	}
	return strings.Join(parts, "; ")
}
