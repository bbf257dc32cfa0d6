package tvl

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/chain"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// priceLookback is how far before the range start prices are requested, so
// a point always exists at or before the start and hourly granularity is
// preserved by the oracle.
const priceLookback = 30 * 24 * time.Hour

type blockLocator interface {
	Locate(ctx context.Context, ts int64) (domain.Block, error)
	BlockAt(ctx context.Context, number uint64) (domain.Block, error)
}

type eventSource interface {
	FetchEvents(ctx context.Context, from, to uint64) ([]domain.BalanceEvent, error)
}

type decimalsSource interface {
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

type priceSource interface {
	PriceRange(ctx context.Context, asset domain.AssetID, from, to time.Time) ([]domain.PricePoint, error)
}

// Range is one analysis request. Interval is the TWAP sub-window length in
// seconds.
type Range struct {
	Start    int64
	End      int64
	Interval int64
	Currency string
}

// IntervalTWAP is the time-weighted average over one sub-window.
type IntervalTWAP struct {
	Start int64
	Value decimal.Decimal
}

// Report is the outcome of one analysis run.
type Report struct {
	Range     Range
	Total     []domain.SeriesPoint
	Intervals []IntervalTWAP
	TWAP      decimal.Decimal
}

// Analyzer wires the pipeline: locate the range blocks, fetch bridge
// events, reconstruct per-asset balances, merge with prices, aggregate the
// total and integrate TWAPs.
type Analyzer struct {
	locator  blockLocator
	events   eventSource
	decimals decimalsSource
	prices   priceSource
	rec      *Reconstructor
	bridge   chain.BridgeSpec
	logger   *zap.Logger
}

func NewAnalyzer(locator blockLocator, events eventSource, decimals decimalsSource, prices priceSource, bridge chain.BridgeSpec, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		locator:  locator,
		events:   events,
		decimals: decimals,
		prices:   prices,
		rec:      NewReconstructor(locator, logger),
		bridge:   bridge,
		logger:   logger,
	}
}

func (a *Analyzer) Run(ctx context.Context, rng Range) (*Report, error) {
	if rng.Start >= rng.End {
		return nil, errors.Errorf("range start %d is not before end %d", rng.Start, rng.End)
	}
	if rng.Interval <= 0 {
		return nil, errors.Errorf("interval %d is not positive", rng.Interval)
	}

	startBlock, err := a.locator.Locate(ctx, rng.Start)
	if err != nil {
		return nil, errors.Wrap(err, "locate range start")
	}
	endBlock, err := a.locator.Locate(ctx, rng.End)
	if err != nil {
		return nil, errors.Wrap(err, "locate range end")
	}
	if endBlock.Number < a.bridge.DeployBlock {
		return nil, errors.Errorf("range ends at block %d, before the bridge deployment at block %d",
			endBlock.Number, a.bridge.DeployBlock)
	}

	a.logger.Info("resolved analysis range",
		zap.Int64("start", rng.Start),
		zap.Int64("end", rng.End),
		zap.Uint64("start_block", startBlock.Number),
		zap.Uint64("end_block", endBlock.Number))

	events, err := a.events.FetchEvents(ctx, a.bridge.DeployBlock, endBlock.Number)
	if err != nil {
		return nil, err
	}

	byAsset := domain.NewAssetEvents()
	for _, ev := range events {
		byAsset.Add(ev)
	}
	assets := byAsset.Assets()
	if len(assets) == 0 {
		return nil, errors.New("no bridge events found, nothing to value")
	}
	a.logger.Info("grouped bridge events",
		zap.Int("events", len(events)),
		zap.Int("assets", len(assets)))

	// decimals and price history per asset are independent lookups, run
	// them concurrently and join before the sequential stages
	decimalsByAsset := make([]uint8, len(assets))
	pricesByAsset := make([][]domain.PricePoint, len(assets))

	priceFrom := time.Unix(rng.Start, 0).Add(-priceLookback)
	priceTo := time.Unix(rng.End, 0)

	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range assets {
		g.Go(func() error {
			if asset.IsNative() {
				decimalsByAsset[i] = domain.NativeDecimals
				return nil
			}
			dec, err := a.decimals.TokenDecimals(gctx, asset.Address())
			if err != nil {
				return errors.Wrapf(err, "decimals of %s", asset)
			}
			decimalsByAsset[i] = dec
			return nil
		})
		g.Go(func() error {
			points, err := a.prices.PriceRange(gctx, asset, priceFrom, priceTo)
			if err != nil {
				return errors.Wrapf(err, "price history of %s", asset)
			}
			pricesByAsset[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perAsset := make([][]domain.SeriesPoint, 0, len(assets))
	for i, asset := range assets {
		samples, err := a.rec.Samples(ctx, byAsset.Events(asset), decimalsByAsset[i], startBlock.Number)
		if err != nil {
			return nil, err
		}
		series, err := MergeValueSeries(samples, pricesByAsset[i], rng.Start, rng.End)
		if err != nil {
			return nil, errors.Wrapf(err, "value series of %s", asset)
		}
		perAsset = append(perAsset, series)
	}

	total := MergeTotal(perAsset, rng.Start)
	total = EnsureStart(total, rng.Start)

	full, err := TWAP(total, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}

	windows := SplitWindows(rng.Start, rng.End, rng.Interval)
	intervals := make([]IntervalTWAP, 0, len(windows))
	for _, w := range windows {
		total = EnsureStart(total, w.Start)
		v, err := TWAP(total, w.Start, w.End)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, IntervalTWAP{Start: w.Start, Value: v})
	}

	return &Report{Range: rng, Total: total, Intervals: intervals, TWAP: full}, nil
}
