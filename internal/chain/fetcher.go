package chain

import (
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultMinWindowRetries = 8
	fetchPauseBase          = 500 * time.Millisecond
	fetchPauseMax           = 10 * time.Second
)

// logSource is the slice of Client the fetcher needs.
type logSource interface {
	FilterLogs(ctx context.Context, address common.Address, topic common.Hash, from, to uint64) ([]types.Log, error)
}

// Fetcher pulls bridge logs over block ranges, adapting the request window
// to whatever the RPC endpoint tolerates.
type Fetcher struct {
	source           logSource
	bridge           BridgeSpec
	minWindowRetries int
	pauseBase        time.Duration
	pauseMax         time.Duration
	logger           *zap.Logger
}

func NewFetcher(source logSource, bridge BridgeSpec, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		source:           source,
		bridge:           bridge,
		minWindowRetries: defaultMinWindowRetries,
		pauseBase:        fetchPauseBase,
		pauseMax:         fetchPauseMax,
		logger:           logger,
	}
}

// FetchAll collects every log for one event kind in [from, to]. The window
// starts as the whole range, halves after each failed request, and doubles
// after each successful one. Every block is covered by exactly one
// successful request. A run of minWindowRetries failures at window size one
// aborts the fetch.
func (f *Fetcher) FetchAll(ctx context.Context, def EventDef, from, to uint64) ([]types.Log, error) {
	var out []types.Log

	window := to - from + 1
	pause := f.pauseBase
	fails := 0

	for cur := from; cur <= to; {
		if remaining := to - cur + 1; window > remaining {
			window = remaining
		}
		end := cur + window - 1

		logs, err := f.source.FilterLogs(ctx, f.bridge.Address, def.Topic(), cur, end)
		if err != nil {
			if window > 1 {
				window /= 2
				f.logger.Debug("shrinking log window",
					zap.String("event", def.Name),
					zap.Uint64("window", window),
					zap.Error(err))
				continue
			}

			fails++
			if fails >= f.minWindowRetries {
				return nil, errors.Wrapf(err, "block %d failed %d times at minimum window", cur, fails)
			}
			f.logger.Warn("retrying single block",
				zap.String("event", def.Name),
				zap.Uint64("block", cur),
				zap.Int("attempt", fails),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pause):
			}
			if pause *= 2; pause > f.pauseMax {
				pause = f.pauseMax
			}
			continue
		}

		out = append(out, logs...)
		cur = end + 1
		window *= 2
		pause = f.pauseBase
		fails = 0
	}

	return out, nil
}

// FetchEvents fetches and decodes every event kind of the bridge in
// [from, to], returning balance events ordered by block number. Decoding
// failures on individual logs are logged and skipped.
func (f *Fetcher) FetchEvents(ctx context.Context, from, to uint64) ([]domain.BalanceEvent, error) {
	var events []domain.BalanceEvent

	for _, def := range f.bridge.Events {
		logs, err := f.FetchAll(ctx, def, from, to)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s logs", def.Name)
		}

		for _, lg := range logs {
			ev, err := DecodeLog(def, lg)
			if err != nil {
				f.logger.Warn("skipping undecodable log",
					zap.String("event", def.Name),
					zap.Uint64("block", lg.BlockNumber),
					zap.Error(err))
				continue
			}
			events = append(events, ev)
		}

		f.logger.Info("fetched bridge logs",
			zap.String("event", def.Name),
			zap.Int("count", len(logs)))
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Block < events[j].Block })
	return events, nil
}
