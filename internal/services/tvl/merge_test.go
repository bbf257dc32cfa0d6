package tvl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

func pricePoints(pairs ...int64) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		points = append(points, domain.PricePoint{
			Timestamp: pairs[i] * 1000,
			Price:     decimal.NewFromInt(pairs[i+1]),
		})
	}
	return points
}

func TestPriceAt(t *testing.T) {
	prices := pricePoints(100, 2, 200, 3, 300, 4)

	tests := []struct {
		name    string
		ts      int64
		want    int64
		wantErr bool
	}{
		{name: "before first point", ts: 99, wantErr: true},
		{name: "exactly at a point", ts: 200, want: 3},
		{name: "between points", ts: 250, want: 3},
		{name: "at first point", ts: 100, want: 2},
		{name: "after last point forward-fills", ts: 10_000, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceAt(prices, tt.ts)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPriceUnavailable)
				return
			}
			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(tt.want).Equal(got), "want %d, got %s", tt.want, got)
		})
	}
}

func resolvedSample(ts int64, balance int64) domain.BalanceSample {
	return domain.BalanceSample{Block: uint64(ts), Timestamp: ts, Balance: decimal.NewFromInt(balance)}
}

func TestMergeValueSeries(t *testing.T) {
	samples := []domain.BalanceSample{
		resolvedSample(100, 10),
		resolvedSample(200, 15),
	}
	prices := pricePoints(50, 2, 150, 3, 250, 4)

	series, err := MergeValueSeries(samples, prices, 100, 300)
	require.NoError(t, err)

	want := []struct {
		ts    int64
		value int64
	}{
		{100, 20}, // seed: balance 10 x price 2
		{150, 30}, // synthetic: price moves to 3
		{200, 45}, // balance moves to 15
		{250, 60}, // synthetic: price moves to 4
	}
	require.Len(t, series, len(want))
	for i, w := range want {
		require.Equal(t, w.ts, series[i].Timestamp, "point %d", i)
		require.True(t, decimal.NewFromInt(w.value).Equal(series[i].Value), "point %d: want %d, got %s", i, w.value, series[i].Value)
	}
}

func TestMergeValueSeriesSeedsFromPreRangeHistory(t *testing.T) {
	// the only sample is unresolved pre-range history, its balance still
	// backs the seed point
	samples := []domain.BalanceSample{
		{Block: 5, Balance: decimal.NewFromInt(7)},
	}
	prices := pricePoints(50, 3)

	series, err := MergeValueSeries(samples, prices, 100, 200)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, int64(100), series[0].Timestamp)
	require.True(t, decimal.NewFromInt(21).Equal(series[0].Value))
}

func TestMergeValueSeriesSkipsSyntheticAtBalanceChange(t *testing.T) {
	samples := []domain.BalanceSample{
		resolvedSample(100, 10),
		resolvedSample(200, 15),
	}
	// price point lands exactly on the balance change at 200
	prices := pricePoints(50, 2, 200, 3)

	series, err := MergeValueSeries(samples, prices, 100, 300)
	require.NoError(t, err)

	require.Len(t, series, 2)
	require.Equal(t, int64(100), series[0].Timestamp)
	require.Equal(t, int64(200), series[1].Timestamp)
	require.True(t, decimal.NewFromInt(45).Equal(series[1].Value), "balance change must price at the colliding point")
}

func TestMergeValueSeriesExcludesRangeEnds(t *testing.T) {
	samples := []domain.BalanceSample{resolvedSample(100, 10)}
	// price points exactly at start and end must not create synthetics
	prices := pricePoints(100, 2, 300, 9)

	series, err := MergeValueSeries(samples, prices, 100, 300)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, int64(100), series[0].Timestamp)
}

func TestMergeValueSeriesFailsWithoutStartPrice(t *testing.T) {
	samples := []domain.BalanceSample{resolvedSample(100, 10)}
	prices := pricePoints(150, 2)

	_, err := MergeValueSeries(samples, prices, 100, 300)
	require.ErrorIs(t, err, ErrPriceUnavailable)
}
