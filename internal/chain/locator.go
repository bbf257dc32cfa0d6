package chain

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"go.uber.org/zap"
)

// ErrBeforeGenesis is returned when a timestamp precedes every block the
// chain can represent.
var ErrBeforeGenesis = errors.New("timestamp predates chain genesis")

const defaultSecondsPerBlock = 12

// blockSource is the slice of Client the locator needs.
type blockSource interface {
	HeadBlock(ctx context.Context) (domain.Block, error)
	BlockByNumber(ctx context.Context, number uint64) (domain.Block, error)
}

// blockSink receives every block the locator learns about, so later runs can
// start with a warm cache. Failures are logged and ignored.
type blockSink interface {
	Put(b domain.Block) error
}

// Locator resolves wall-clock timestamps to block numbers through a sparse,
// lazily populated cache of (number, timestamp) pairs. The cache only grows,
// stays sorted and deduplicated by number, and block order implies timestamp
// order.
type Locator struct {
	source          blockSource
	secondsPerBlock int64
	sink            blockSink
	logger          *zap.Logger

	mu    sync.Mutex
	cache []domain.Block
}

// NewLocator creates a locator. secondsPerBlock tunes the backward-walk step
// estimate (values below 1 fall back to the default), sink may be nil, seed
// blocks prime the cache without being re-persisted.
func NewLocator(source blockSource, secondsPerBlock int64, sink blockSink, seed []domain.Block, logger *zap.Logger) *Locator {
	if secondsPerBlock < 1 {
		secondsPerBlock = defaultSecondsPerBlock
	}
	l := &Locator{
		source:          source,
		secondsPerBlock: secondsPerBlock,
		sink:            sink,
		logger:          logger,
	}
	for _, b := range seed {
		l.remember(b, false)
	}
	return l
}

// Locate returns the block with the greatest number whose timestamp does not
// exceed ts.
func (l *Locator) Locate(ctx context.Context, ts int64) (domain.Block, error) {
	// head check: nothing cached yet, or the whole cache is behind the target
	if newest, ok := l.newest(); !ok || newest.Timestamp < ts {
		head, err := l.source.HeadBlock(ctx)
		if err != nil {
			return domain.Block{}, err
		}
		l.remember(head, true)
		if head.Timestamp <= ts {
			return head, nil
		}
	}

	if newest, _ := l.newest(); newest.Timestamp == ts {
		return newest, nil
	}

	// make sure some cached block sits at or before the target
	if err := l.walkBack(ctx, ts); err != nil {
		return domain.Block{}, err
	}

	return l.narrow(ctx, ts)
}

// BlockAt returns the block with the given number, fetching and caching it
// on a miss.
func (l *Locator) BlockAt(ctx context.Context, number uint64) (domain.Block, error) {
	if b, ok := l.cached(number); ok {
		return b, nil
	}
	b, err := l.source.BlockByNumber(ctx, number)
	if err != nil {
		return domain.Block{}, err
	}
	l.remember(b, true)
	return b, nil
}

// walkBack extends the cache downward until its earliest entry is at or
// before ts. The step is estimated from the chain's average block time with
// a 10% cushion and grows in multiples until a satisfying block is found.
func (l *Locator) walkBack(ctx context.Context, ts int64) error {
	earliest, ok := l.oldest()
	if !ok || earliest.Timestamp <= ts {
		return nil
	}

	step := (earliest.Timestamp - ts) / l.secondsPerBlock
	step += step / 10
	if step < 1 {
		step = 1
	}

	for i := int64(1); ; i++ {
		back := uint64(i * step)
		var number uint64
		if back < earliest.Number {
			number = earliest.Number - back
		}

		b, err := l.BlockAt(ctx, number)
		if err != nil {
			return err
		}
		l.logger.Debug("walked back",
			zap.Uint64("block", b.Number),
			zap.Int64("timestamp", b.Timestamp),
			zap.Int64("target", ts))

		if b.Timestamp <= ts {
			return nil
		}
		if number == 0 {
			return errors.Wrapf(ErrBeforeGenesis, "no block at or before timestamp %d", ts)
		}
	}
}

// narrow shrinks the cached bracket around ts by interpolated probes until
// the bracket endpoints are adjacent, then returns the lower one. Callers
// guarantee the cache brackets ts.
func (l *Locator) narrow(ctx context.Context, ts int64) (domain.Block, error) {
	lo, hi := l.bracket(ts)

	for {
		if lo.Timestamp == ts {
			return lo, nil
		}
		if hi.Number-lo.Number <= 1 {
			return lo, nil
		}

		probe := interpolateBlock(lo, hi, ts)
		b, err := l.BlockAt(ctx, probe)
		if err != nil {
			return domain.Block{}, err
		}

		if b.Timestamp == ts {
			return b, nil
		}
		if b.Timestamp < ts {
			lo = b
		} else {
			hi = b
		}
	}
}

// interpolateBlock estimates where ts falls between two blocks, clamped
// strictly inside the open number interval so the bracket always shrinks.
func interpolateBlock(lo, hi domain.Block, ts int64) uint64 {
	span := hi.Timestamp - lo.Timestamp
	blocks := int64(hi.Number - lo.Number)
	est := lo.Number + uint64((ts-lo.Timestamp)*blocks/span)
	if est <= lo.Number {
		est = lo.Number + 1
	}
	if est >= hi.Number {
		est = hi.Number - 1
	}
	return est
}

// remember inserts the block at its sorted cache position, skipping
// duplicates, and optionally mirrors it to the persistent sink.
func (l *Locator) remember(b domain.Block, persist bool) {
	l.mu.Lock()
	idx := sort.Search(len(l.cache), func(i int) bool { return l.cache[i].Number >= b.Number })
	known := idx < len(l.cache) && l.cache[idx].Number == b.Number
	if !known {
		l.cache = append(l.cache, domain.Block{})
		copy(l.cache[idx+1:], l.cache[idx:])
		l.cache[idx] = b
	}
	l.mu.Unlock()

	if known || !persist || l.sink == nil {
		return
	}
	if err := l.sink.Put(b); err != nil {
		l.logger.Warn("failed to persist block", zap.Uint64("block", b.Number), zap.Error(err))
	}
}

func (l *Locator) cached(number uint64) (domain.Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := sort.Search(len(l.cache), func(i int) bool { return l.cache[i].Number >= number })
	if idx < len(l.cache) && l.cache[idx].Number == number {
		return l.cache[idx], true
	}
	return domain.Block{}, false
}

func (l *Locator) oldest() (domain.Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.cache) == 0 {
		return domain.Block{}, false
	}
	return l.cache[0], true
}

func (l *Locator) newest() (domain.Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.cache) == 0 {
		return domain.Block{}, false
	}
	return l.cache[len(l.cache)-1], true
}

// bracket returns the cached neighbors of ts: the greatest entry at or
// before it and the smallest entry after it.
func (l *Locator) bracket(ts int64) (lo, hi domain.Block) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := sort.Search(len(l.cache), func(i int) bool { return l.cache[i].Timestamp > ts })
	return l.cache[idx-1], l.cache[idx]
}

// Cached returns a copy of the cache, ascending by block number.
func (l *Locator) Cached() []domain.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Block, len(l.cache))
	copy(out, l.cache)
	return out
}
