package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/eshaffer321/itemize/internal/adapters/ledger/monarch"
	"github.com/eshaffer321/itemize/internal/adapters/providers"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/eshaffer321/itemize/internal/infrastructure/workerpool"
)

// Data fetching functions for the sync orchestrator.
// These handle retrieving orders and ledger transactions from external sources.

// fetchOrders fetches orders from every source concurrently. Orders are
// concatenated in registry order so matching input is deterministic. The
// returned map records which provider each order came from.
func (o *Orchestrator) fetchOrders(
	ctx context.Context,
	sources []providers.OrderSource,
	fetchOpts providers.FetchOptions,
	opts Options,
	result *Result,
) ([]matcher.Order, map[string]string, error) {
	o.logger.Debug("Fetching orders",
		"start_date", fetchOpts.StartDate.Format("2006-01-02"),
		"end_date", fetchOpts.EndDate.Format("2006-01-02"),
		"year", fetchOpts.Year,
	)

	o.report(opts, Progress{Phase: PhaseFetchingOrders, Total: len(sources)})

	fetched, err := workerpool.Map(ctx, o.cfg.Concurrency, sources,
		func(ctx context.Context, s providers.OrderSource) ([]matcher.Order, error) {
			sourceOpts := fetchOpts
			if sourceOpts.MaxOrders == 0 {
				sourceOpts.MaxOrders = o.cfg.MaxOrders[s.Name()]
			}
			return s.FetchOrders(ctx, sourceOpts)
		})
	if err != nil {
		return nil, nil, failure(ReasonUnknown, "", err)
	}

	var orders []matcher.Order
	orderProviders := make(map[string]string)
	for i, source := range sources {
		if fetched[i].Err != nil {
			return nil, nil, failure(ReasonProviderError, source.Name(),
				fmt.Errorf("failed to fetch orders: %w", fetched[i].Err))
		}

		o.report(opts, Progress{Phase: PhaseFetchingOrders, Provider: source.Name(), Complete: i + 1, Total: len(sources)})

		providerOrders := fetched[i].Value
		result.ProviderOrders[source.Name()] = len(providerOrders)
		o.logger.Debug("Fetched orders", "provider", source.Name(), "count", len(providerOrders))

		for _, order := range providerOrders {
			if _, seen := orderProviders[order.ID]; !seen {
				orderProviders[order.ID] = source.Name()
			}
		}
		orders = append(orders, providerOrders...)
	}

	return orders, orderProviders, nil
}

// fetchLedgerTransactions searches the ledger once per merchant term of
// every source and returns the union, first occurrence wins.
func (o *Orchestrator) fetchLedgerTransactions(
	ctx context.Context,
	sources []providers.OrderSource,
	start, end time.Time,
) ([]matcher.LedgerTransaction, error) {
	o.logger.Debug("Fetching ledger transactions",
		"start_date", start.Format("2006-01-02"),
		"end_date", end.Format("2006-01-02"),
	)

	var transactions []matcher.LedgerTransaction
	seen := make(map[string]bool)

	for _, source := range sources {
		for _, term := range o.searchTerms(source) {
			found, err := o.ledger.GetTransactions(ctx, monarch.Query{
				Search:    term,
				StartDate: start,
				EndDate:   end,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to fetch transactions for %s: %w", term, err)
			}

			added := 0
			for _, txn := range found {
				if seen[txn.ID] {
					continue
				}
				seen[txn.ID] = true
				transactions = append(transactions, txn)
				added++
			}

			o.logger.Debug("Fetched transactions",
				"provider", source.Name(),
				"search", term,
				"found", len(found),
				"new", added,
			)
		}
	}

	return transactions, nil
}

// searchTerms returns the configured merchant override or the source's own terms
func (o *Orchestrator) searchTerms(source providers.OrderSource) []string {
	if merchant, ok := o.cfg.Merchants[source.Name()]; ok && merchant != "" {
		return []string{merchant}
	}
	return source.MerchantSearchTerms()
}
