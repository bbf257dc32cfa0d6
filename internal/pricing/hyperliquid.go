package pricing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

const HyperliquidMainnetURL = "https://api.hyperliquid.xyz"

// Hyperliquid reads hourly open prices from the candles snapshot endpoint.
// The SDK wants a signing key even for market data, so a throwaway key
// backs the read-only session.
type Hyperliquid struct {
	info    *hyperliquid.Info
	symbols map[domain.AssetID]string
}

// NewHyperliquid creates a price source against baseURL (mainnet when
// empty). symbols maps asset ids to coin names like ETH.
func NewHyperliquid(ctx context.Context, baseURL string, symbols map[domain.AssetID]string) (*Hyperliquid, error) {
	if baseURL == "" {
		baseURL = HyperliquidMainnetURL
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate session key")
	}
	accountAddr := crypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	ex := hyperliquid.NewExchange(ctx, privateKey, baseURL, nil, "", accountAddr, nil)
	return &Hyperliquid{info: ex.Info(), symbols: symbols}, nil
}

func (h *Hyperliquid) PriceRange(ctx context.Context, asset domain.AssetID, from, to time.Time) ([]domain.PricePoint, error) {
	coin, err := symbolFor("hyperliquid", h.symbols, asset)
	if err != nil {
		return nil, err
	}
	coin = strings.ToUpper(coin)

	candles, err := h.info.CandlesSnapshot(ctx, coin, "1h", from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", coin)
	}
	if len(candles) == 0 {
		return nil, errors.Errorf("no candles from hyperliquid for %s", coin)
	}

	points := make([]domain.PricePoint, 0, len(candles))
	for i, c := range candles {
		open, err := decimal.NewFromString(c.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "parse open at %d", i)
		}
		points = append(points, domain.PricePoint{Timestamp: c.TimeOpen, Price: open})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}
