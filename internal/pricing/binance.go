package pricing

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

const binanceKlineLimit = 1000

// Binance reads hourly open prices from the spot klines endpoint.
type Binance struct {
	client  *binance.Client
	symbols map[domain.AssetID]string
}

// NewBinance creates a price source over an existing Binance client.
// symbols maps asset ids to spot symbols like ETHUSDT.
func NewBinance(client *binance.Client, symbols map[domain.AssetID]string) *Binance {
	return &Binance{client: client, symbols: symbols}
}

func (b *Binance) PriceRange(ctx context.Context, asset domain.AssetID, from, to time.Time) ([]domain.PricePoint, error) {
	symbol, err := symbolFor("binance", b.symbols, asset)
	if err != nil {
		return nil, err
	}

	var points []domain.PricePoint

	cursor := from.UnixMilli()
	endMs := to.UnixMilli()
	for cursor < endMs {
		klines, err := b.client.NewKlinesService().
			Symbol(symbol).
			Interval("1h").
			StartTime(cursor).
			EndTime(endMs).
			Limit(binanceKlineLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			open, err := decimal.NewFromString(k.Open)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse open price for %s", symbol)
			}
			points = append(points, domain.PricePoint{Timestamp: k.OpenTime, Price: open})
		}

		if len(klines) < binanceKlineLimit {
			break
		}
		cursor = klines[len(klines)-1].CloseTime + 1
	}

	if len(points) == 0 {
		return nil, errors.Errorf("binance returned no klines for %s", symbol)
	}
	return points, nil
}
