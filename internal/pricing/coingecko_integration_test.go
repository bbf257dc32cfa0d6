//go:build integration

package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"go.uber.org/zap"
)

// TestCoinGeckoPriceRange_Integration calls the real CoinGecko API.
// To run this test, use: go test -tags=integration -v ./...
func TestCoinGeckoPriceRange_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cg := NewCoinGecko("", "ethereum", "ethereum", "usd", zap.NewNop())

	to := time.Now()
	from := to.Add(-24 * time.Hour)

	points, err := cg.PriceRange(context.Background(), domain.NativeAsset, from, to)
	require.NoError(t, err)
	require.NotEmpty(t, points)

	for _, p := range points {
		require.True(t, p.Price.GreaterThan(decimal.Zero), "Expected price > 0, got %s", p.Price.String())
	}
	t.Logf("Fetched %d ETH price points, latest: %s", len(points), points[len(points)-1].Price.String())
}
