package tvl

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

// EnsureStart guarantees a point exists exactly at start: zero value when
// nothing precedes it, otherwise the nearest preceding value carried
// forward. Returns the possibly grown series.
func EnsureStart(series []domain.SeriesPoint, start int64) []domain.SeriesPoint {
	idx := sort.Search(len(series), func(i int) bool { return series[i].Timestamp >= start })
	if idx < len(series) && series[idx].Timestamp == start {
		return series
	}

	value := decimal.Zero
	if idx > 0 {
		value = series[idx-1].Value
	}

	series = append(series, domain.SeriesPoint{})
	copy(series[idx+1:], series[idx:])
	series[idx] = domain.SeriesPoint{Timestamp: start, Value: value}
	return series
}

// TWAP integrates the series over [start, end) with hold-last-value
// weighting: each point holds until the next one, the last until end.
// Callers seed the window start via EnsureStart first.
func TWAP(series []domain.SeriesPoint, start, end int64) (decimal.Decimal, error) {
	if start >= end {
		return decimal.Decimal{}, errors.Errorf("invalid window [%d, %d)", start, end)
	}

	lo := sort.Search(len(series), func(i int) bool { return series[i].Timestamp >= start })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Timestamp >= end })
	if lo == hi {
		return decimal.Decimal{}, errors.Errorf("no samples in window [%d, %d)", start, end)
	}

	sum := decimal.Zero
	for i := lo; i < hi; i++ {
		next := end
		if i+1 < hi {
			next = series[i+1].Timestamp
		}
		weight := next - series[i].Timestamp
		sum = sum.Add(series[i].Value.Mul(decimal.NewFromInt(weight)))
	}

	return sum.Div(decimal.NewFromInt(end - start)), nil
}

// Window is one TWAP sub-interval.
type Window struct {
	Start int64
	End   int64
}

// SplitWindows cuts [start, end) into consecutive intervals of the given
// length, truncating the last one at end.
func SplitWindows(start, end, interval int64) []Window {
	var windows []Window
	for cur := start; cur < end; cur += interval {
		w := Window{Start: cur, End: cur + interval}
		if w.End > end {
			w.End = end
		}
		windows = append(windows, w)
	}
	return windows
}
