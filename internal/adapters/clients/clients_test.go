package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize/internal/infrastructure/config"
)

func TestNewClients_Success(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		Ledger: config.LedgerConfig{APIKey: "test-monarch-token"},
		Providers: config.ProvidersConfig{
			Amazon:  config.AmazonConfig{Enabled: true},
			Walmart: config.WalmartConfig{Enabled: true, Cookie: "session=abc"},
		},
	}

	// Act
	clients, err := NewClients(cfg, nil)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, clients.Ledger)
	assert.Equal(t, []string{"amazon", "walmart"}, clients.Registry.List())
}

func TestNewClients_KeyFromEnv(t *testing.T) {
	// Arrange
	t.Setenv("MONARCH_TOKEN", "")
	t.Setenv("MONARCH_API_KEY", "env-token")
	cfg := &config.Config{
		Providers: config.ProvidersConfig{Costco: config.CostcoConfig{Enabled: true}},
	}

	// Act
	clients, err := NewClients(cfg, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"costco"}, clients.Registry.List())
}

func TestNewClients_MissingKey(t *testing.T) {
	// Arrange
	t.Setenv("MONARCH_TOKEN", "")
	t.Setenv("MONARCH_API_KEY", "")

	// Act
	clients, err := NewClients(&config.Config{}, nil)

	// Assert
	assert.ErrorIs(t, err, ErrNoLedgerKey)
	assert.Nil(t, clients)
}

func TestNewRegistry_NothingEnabled(t *testing.T) {
	registry, err := NewRegistry(&config.Config{}, nil)

	require.NoError(t, err)
	assert.Empty(t, registry.List())
}
