// Package tvl reconstructs total-value-locked series from bridge events
// and prices, and integrates time-weighted averages over them.
package tvl

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"go.uber.org/zap"
)

// blockTimes resolves block numbers to chain timestamps.
type blockTimes interface {
	BlockAt(ctx context.Context, number uint64) (domain.Block, error)
}

// Reconstructor folds signed bridge events into running balance samples.
type Reconstructor struct {
	blocks blockTimes
	logger *zap.Logger
}

func NewReconstructor(blocks blockTimes, logger *zap.Logger) *Reconstructor {
	return &Reconstructor{blocks: blocks, logger: logger}
}

// Samples returns one balance sample per event, in event order. Timestamps
// are resolved only for blocks at or after startBlock; earlier samples are
// pre-range history that seeds the starting balance. Scaling divides the
// raw integer by 10^decimals without ever passing through a float.
func (r *Reconstructor) Samples(ctx context.Context, events []domain.BalanceEvent, decimals uint8, startBlock uint64) ([]domain.BalanceSample, error) {
	cumulative := new(big.Int)
	samples := make([]domain.BalanceSample, 0, len(events))

	for _, ev := range events {
		cumulative = new(big.Int).Add(cumulative, ev.Amount)

		sample := domain.BalanceSample{
			Block:   ev.Block,
			Raw:     cumulative,
			Balance: decimal.NewFromBigInt(cumulative, -int32(decimals)),
		}
		if ev.Block >= startBlock {
			b, err := r.blocks.BlockAt(ctx, ev.Block)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve timestamp of block %d", ev.Block)
			}
			sample.Timestamp = b.Timestamp
		}
		samples = append(samples, sample)

		if cumulative.Sign() < 0 {
			r.logger.Warn("negative reconstructed balance",
				zap.Uint64("block", ev.Block),
				zap.String("asset", string(ev.Asset)),
				zap.String("balance", cumulative.String()))
		}
	}

	return samples, nil
}
