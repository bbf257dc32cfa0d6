package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BalanceSample is one step of an asset's cumulative balance. Raw is the
// running sum of all signed deltas up to this point, Balance the same value
// scaled by the asset's decimals. Timestamp stays zero for samples before the
// analysis range, they only seed the starting balance.
type BalanceSample struct {
	Block     uint64
	Timestamp int64
	Raw       *big.Int
	Balance   decimal.Decimal
}

// Resolved reports whether the sample's wall-clock timestamp is known.
func (s BalanceSample) Resolved() bool {
	return s.Timestamp > 0
}

// PricePoint is one oracle price sample. Timestamp is unix milliseconds.
type PricePoint struct {
	Timestamp int64
	Price     decimal.Decimal
}

// SeriesPoint is one step of a value series. Timestamp is unix seconds.
type SeriesPoint struct {
	Timestamp int64
	Value     decimal.Decimal
}
