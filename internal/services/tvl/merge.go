package tvl

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

// ErrPriceUnavailable means an asset has no price point at or before the
// queried timestamp. Hitting it for a range start is fatal, which is why
// price sources are queried with a long lookback before the range.
var ErrPriceUnavailable = errors.New("no price at or before timestamp")

// PriceAt returns the latest price at or before ts (unix seconds). Prices
// past the last point are forward-filled from it.
func PriceAt(points []domain.PricePoint, ts int64) (decimal.Decimal, error) {
	target := ts * 1000
	idx := sort.Search(len(points), func(i int) bool { return points[i].Timestamp > target })
	if idx == 0 {
		return decimal.Decimal{}, errors.Wrapf(ErrPriceUnavailable, "timestamp %d", ts)
	}
	return points[idx-1].Price, nil
}

// balanceAt returns the cumulative balance in effect at ts. Samples without
// a resolved timestamp count as pre-range history and always apply.
func balanceAt(samples []domain.BalanceSample, ts int64) decimal.Decimal {
	balance := decimal.Zero
	for _, s := range samples {
		if s.Resolved() && s.Timestamp > ts {
			break
		}
		balance = s.Balance
	}
	return balance
}

// MergeValueSeries combines one asset's balance samples with its price
// points into a value series over [start, end): a seed point at start, one
// point per balance change inside the range, and one synthetic point per
// price move strictly inside the range, so the series tracks price drift
// between balance changes.
func MergeValueSeries(samples []domain.BalanceSample, prices []domain.PricePoint, start, end int64) ([]domain.SeriesPoint, error) {
	startPrice, err := PriceAt(prices, start)
	if err != nil {
		return nil, err
	}

	points := []domain.SeriesPoint{{Timestamp: start, Value: balanceAt(samples, start).Mul(startPrice)}}
	seen := map[int64]bool{start: true}

	for _, s := range samples {
		if !s.Resolved() || s.Timestamp <= start || s.Timestamp >= end {
			continue
		}
		price, err := PriceAt(prices, s.Timestamp)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.SeriesPoint{Timestamp: s.Timestamp, Value: s.Balance.Mul(price)})
		seen[s.Timestamp] = true
	}

	for _, p := range prices {
		ts := p.Timestamp / 1000
		if ts <= start || ts >= end || seen[ts] {
			continue
		}
		points = append(points, domain.SeriesPoint{Timestamp: ts, Value: balanceAt(samples, ts).Mul(p.Price)})
		seen[ts] = true
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}
