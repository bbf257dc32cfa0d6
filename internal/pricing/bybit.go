package pricing

import (
	"context"
	"sort"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

const bybitKlineLimit = 1000

// Bybit reads hourly open prices from the V5 spot kline endpoint. The API
// returns candles newest first, so pagination walks backward from the
// range end.
type Bybit struct {
	client  *bybit.Client
	symbols map[domain.AssetID]string
}

// NewBybit creates a price source over an existing Bybit client.
func NewBybit(client *bybit.Client, symbols map[domain.AssetID]string) *Bybit {
	return &Bybit{client: client, symbols: symbols}
}

func (b *Bybit) PriceRange(_ context.Context, asset domain.AssetID, from, to time.Time) ([]domain.PricePoint, error) {
	symbol, err := symbolFor("bybit", b.symbols, asset)
	if err != nil {
		return nil, err
	}

	startMs := from.UnixMilli()
	endCursor := to.UnixMilli()
	limit := bybitKlineLimit

	var points []domain.PricePoint

	for {
		start := startMs
		end := endCursor
		resp, err := b.client.V5().Market().GetKline(bybit.V5GetKlineParam{
			Category: "spot",
			Symbol:   bybit.SymbolV5(symbol),
			Interval: "60",
			Start:    &start,
			End:      &end,
			Limit:    &limit,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
		}

		list := resp.Result.List
		if len(list) == 0 {
			break
		}

		var oldest int64
		for _, item := range list {
			startTime, err := strconv.ParseInt(item.StartTime, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse kline start time %q", item.StartTime)
			}
			open, err := decimal.NewFromString(item.Open)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse open price for %s", symbol)
			}
			points = append(points, domain.PricePoint{Timestamp: startTime, Price: open})
			oldest = startTime
		}

		if len(list) < bybitKlineLimit || oldest <= startMs {
			break
		}
		endCursor = oldest - 1
	}

	if len(points) == 0 {
		return nil, errors.Errorf("bybit returned no klines for %s", symbol)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}
