package monarch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/graphql"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the last GraphQL request and replies with body
type recorder struct {
	req    graphql.Request
	auth   string
	body   string
	status int
}

func (r *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.auth = req.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&r.req))
		if r.status != 0 {
			w.WriteHeader(r.status)
			return
		}
		_, _ = w.Write([]byte(r.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetTransactions(t *testing.T) {
	rec := &recorder{body: `{"data": {"allTransactions": {"totalCount": 2, "results": [
		{"id": "t1", "amount": -42.5, "pending": false, "date": "2024-01-12", "notes": ""},
		{"id": "t2", "amount": 10, "pending": true, "date": "2024-01-13", "notes": null}
	]}}}`}
	srv := rec.server(t)
	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)

	txns, err := c.GetTransactions(context.Background(), Query{
		Search:    "Amazon",
		StartDate: time.Date(2023, 12, 23, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, []matcher.LedgerTransaction{
		{ID: "t1", Amount: -42.5, Date: "2024-01-12"},
		{ID: "t2", Amount: 10, Date: "2024-01-13"},
	}, txns)

	assert.Equal(t, "Token secret", rec.auth)
	assert.Equal(t, "Web_GetTransactionsList", rec.req.OperationName)
	assert.Equal(t, float64(DefaultLimit), rec.req.Variables["limit"])
	assert.Equal(t, "date", rec.req.Variables["orderBy"])

	filters := rec.req.Variables["filters"].(map[string]any)
	assert.Equal(t, "Amazon", filters["search"])
	assert.Equal(t, "2023-12-23", filters["startDate"])
	assert.Equal(t, "2025-01-08", filters["endDate"])
}

func TestClient_GetTransactions_OpenRange(t *testing.T) {
	rec := &recorder{body: `{"data": {"allTransactions": {"totalCount": 0, "results": []}}}`}
	srv := rec.server(t)
	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)

	txns, err := c.GetTransactions(context.Background(), Query{Search: "Walmart", Limit: 5})

	require.NoError(t, err)
	assert.Empty(t, txns)
	filters := rec.req.Variables["filters"].(map[string]any)
	assert.NotContains(t, filters, "startDate")
	assert.NotContains(t, filters, "endDate")
	assert.Equal(t, float64(5), rec.req.Variables["limit"])
}

func TestClient_UpdateNotes(t *testing.T) {
	rec := &recorder{body: `{"data": {"updateTransaction": {"transaction": {"id": "t1"}, "errors": null}}}`}
	srv := rec.server(t)
	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)

	err := c.UpdateNotes(context.Background(), "t1", "$1.00 - o1 - Thing")

	require.NoError(t, err)
	assert.Equal(t, "Web_TransactionDrawerUpdateTransaction", rec.req.OperationName)
	input := rec.req.Variables["input"].(map[string]any)
	assert.Equal(t, "t1", input["id"])
	assert.Equal(t, "$1.00 - o1 - Thing", input["notes"])
}

func TestClient_UpdateNotes_PayloadErrors(t *testing.T) {
	rec := &recorder{body: `{"data": {"updateTransaction": {"transaction": null, "errors": {
		"message": "Invalid input",
		"code": "BAD_INPUT",
		"fieldErrors": [{"field": "notes", "messages": ["too long"]}]
	}}}}`}
	srv := rec.server(t)
	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)

	err := c.UpdateNotes(context.Background(), "t1", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid input")
	assert.Contains(t, err.Error(), "notes: too long")
}

func TestClient_Unauthorized(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		c := NewClient(Config{}, nil)

		assert.ErrorIs(t, c.CheckAuth(context.Background()), ErrUnauthorized)
		_, err := c.GetTransactions(context.Background(), Query{})
		assert.ErrorIs(t, err, ErrNoAPIKey)
		assert.ErrorIs(t, c.UpdateNotes(context.Background(), "t1", "x"), ErrUnauthorized)
	})

	t.Run("rejected key", func(t *testing.T) {
		rec := &recorder{status: http.StatusUnauthorized}
		srv := rec.server(t)
		c := NewClient(Config{APIKey: "expired", BaseURL: srv.URL}, nil)

		err := c.CheckAuth(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, float64(1), rec.req.Variables["limit"])
	})
}
