//go:build integration

package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

// TestHyperliquidPriceRange_Integration calls the real Hyperliquid API.
// To run this test, use: go test -tags=integration -v ./...
func TestHyperliquidPriceRange_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	src, err := NewHyperliquid(ctx, "", map[domain.AssetID]string{domain.NativeAsset: "ETH"})
	require.NoError(t, err)

	to := time.Now()
	from := to.Add(-24 * time.Hour)

	points, err := src.PriceRange(ctx, domain.NativeAsset, from, to)
	require.NoError(t, err)
	require.NotEmpty(t, points)

	for _, p := range points {
		require.True(t, p.Price.GreaterThan(decimal.Zero), "Expected price > 0, got %s", p.Price.String())
	}
	t.Logf("Fetched %d ETH candles, latest open: %s", len(points), points[len(points)-1].Price.String())
}
