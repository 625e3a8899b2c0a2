package sync

import (
	"context"
	"io"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/ledger/monarch"
	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource is an in-memory order source
type fakeSource struct {
	name   string
	auth   providers.AuthResult
	orders []matcher.Order
	err    error
	terms  []string

	mu      gosync.Mutex
	fetched []providers.FetchOptions
}

func newFakeSource(name string, orders ...matcher.Order) *fakeSource {
	return &fakeSource{
		name:   name,
		auth:   providers.AuthResult{Status: providers.AuthSuccess},
		orders: orders,
		terms:  []string{name},
	}
}

func (f *fakeSource) Name() string        { return f.name }
func (f *fakeSource) DisplayName() string { return f.name }

func (f *fakeSource) CheckAuth(context.Context) providers.AuthResult {
	return f.auth
}

func (f *fakeSource) FetchOrders(_ context.Context, opts providers.FetchOptions) ([]matcher.Order, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, opts)
	f.mu.Unlock()
	return f.orders, f.err
}

func (f *fakeSource) MerchantSearchTerms() []string {
	return f.terms
}

type noteUpdate struct {
	ID    string
	Notes string
}

// fakeLedger serves transactions per search term and records note writes
type fakeLedger struct {
	authErr   error
	getErr    error
	byTerm    map[string][]matcher.LedgerTransaction
	updateErr map[string]error

	mu      gosync.Mutex
	queries []monarch.Query
	updates []noteUpdate
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		byTerm:    make(map[string][]matcher.LedgerTransaction),
		updateErr: make(map[string]error),
	}
}

func (f *fakeLedger) CheckAuth(context.Context) error {
	return f.authErr
}

func (f *fakeLedger) GetTransactions(_ context.Context, q monarch.Query) ([]matcher.LedgerTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byTerm[q.Search], nil
}

func (f *fakeLedger) UpdateNotes(_ context.Context, id, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updates = append(f.updates, noteUpdate{ID: id, Notes: notes})
	return nil
}

// harness wires an orchestrator to fakes with a fixed clock and no real sleeping
type harness struct {
	registry *providers.Registry
	ledger   *fakeLedger
	repo     *storage.MockRepository
	sleeps   []time.Duration
	sleepErr error
	cfg      Config
	progress []Progress
}

func newHarness(t *testing.T, sources ...providers.OrderSource) *harness {
	t.Helper()
	registry := providers.NewRegistry(quietLogger())
	for _, s := range sources {
		require.NoError(t, registry.Register(s))
	}
	return &harness{
		registry: registry,
		ledger:   newFakeLedger(),
		repo:     storage.NewMockRepository(),
		cfg: Config{
			Matching:       matcher.DefaultConfig(),
			WriteDelay:     500 * time.Millisecond,
			LookbackMonths: 3,
			Concurrency:    2,
		},
	}
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func (h *harness) orchestrator() *Orchestrator {
	o := NewOrchestrator(h.registry, h.ledger, h.repo, h.cfg, quietLogger())
	o.now = func() time.Time { return fixedNow }
	o.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return h.sleepErr
	}
	return o
}

func (h *harness) run(t *testing.T, opts Options) (*Result, error) {
	t.Helper()
	opts.Progress = func(p Progress) { h.progress = append(h.progress, p) }
	return h.orchestrator().Run(context.Background(), opts)
}

func purchase(orderID, date string, amount float64, items ...matcher.Item) matcher.Order {
	for i := range items {
		items[i].OrderID = orderID
	}
	return matcher.Order{
		ID:   orderID,
		Date: date,
		Charges: []matcher.OrderCharge{
			{Amount: amount, Date: date, Items: items},
		},
	}
}

func refund(orderID, date string, amount float64, items ...matcher.Item) matcher.Order {
	o := purchase(orderID, date, amount, items...)
	o.Charges[0].Refund = true
	return o
}

func item(title string, price float64) matcher.Item {
	return matcher.Item{Title: title, Price: price}
}

func txn(id string, amount float64, date, notes string) matcher.LedgerTransaction {
	return matcher.LedgerTransaction{ID: id, Amount: amount, Date: date, Notes: notes}
}
