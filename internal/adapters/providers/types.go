package providers

import (
	"context"
	"time"

	"github.com/eshaffer321/itemize/internal/domain/matcher"
)

// Provider tags. The set is closed; the registry rejects anything else.
const (
	Amazon  = "amazon"
	Walmart = "walmart"
	Costco  = "costco"
)

// KnownProviders lists the supported tags in their default sync order.
var KnownProviders = []string{Amazon, Walmart, Costco}

// IsKnown reports whether name is a supported provider tag
func IsKnown(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}

// AuthStatus describes whether a source currently has a usable session
type AuthStatus string

const (
	AuthPending     AuthStatus = "pending"
	AuthNotLoggedIn AuthStatus = "not_logged_in"
	AuthSuccess     AuthStatus = "success"
	AuthFailure     AuthStatus = "failure"
)

// AuthResult is returned by CheckAuth
type AuthResult struct {
	Status AuthStatus `json:"status"`
	// StartingYear is the oldest year with order history, when known.
	StartingYear int `json:"starting_year,omitempty"`
	// Message carries the failure reason for display.
	Message string `json:"message,omitempty"`
}

// OK reports whether the source is authenticated
func (a AuthResult) OK() bool {
	return a.Status == AuthSuccess
}

// FetchOptions configures how orders are fetched
type FetchOptions struct {
	StartDate time.Time
	EndDate   time.Time
	// Year restricts the fetch to one calendar year of order history (0 = use the date range).
	Year      int
	MaxOrders int
}

// OrderSource is the interface that all providers must implement
type OrderSource interface {
	// Provider identification
	Name() string        // "amazon", "walmart", "costco"
	DisplayName() string // "Amazon", "Walmart", "Costco"

	// CheckAuth never returns an error; failures are reported in the result.
	CheckAuth(ctx context.Context) AuthResult

	// FetchOrders returns orders with their charges and line items.
	FetchOrders(ctx context.Context, opts FetchOptions) ([]matcher.Order, error)

	// MerchantSearchTerms are the ledger merchant filters for this source.
	MerchantSearchTerms() []string
}
