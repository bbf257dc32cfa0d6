package chain

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"go.uber.org/zap"
)

// fakeChain serves a synthetic chain where index equals block number.
type fakeChain struct {
	blocks []domain.Block
	calls  int
}

func (f *fakeChain) HeadBlock(_ context.Context) (domain.Block, error) {
	f.calls++
	return f.blocks[len(f.blocks)-1], nil
}

func (f *fakeChain) BlockByNumber(_ context.Context, number uint64) (domain.Block, error) {
	f.calls++
	if number >= uint64(len(f.blocks)) {
		return domain.Block{}, errors.New("unknown block")
	}
	return f.blocks[number], nil
}

// irregularChain builds n blocks with uneven block times so interpolation
// estimates are always a little off.
func irregularChain(n int, genesisTs int64) *fakeChain {
	gaps := []int64{12, 1, 30, 12, 14, 2, 25, 13}
	blocks := make([]domain.Block, n)
	ts := genesisTs
	for i := range blocks {
		blocks[i] = domain.Block{Number: uint64(i), Timestamp: ts}
		ts += gaps[i%len(gaps)]
	}
	return &fakeChain{blocks: blocks}
}

// latestAtOrBefore is the reference answer: the greatest block whose
// timestamp does not exceed ts.
func latestAtOrBefore(blocks []domain.Block, ts int64) domain.Block {
	best := blocks[0]
	for _, b := range blocks {
		if b.Timestamp <= ts {
			best = b
		}
	}
	return best
}

func TestLocateFindsLatestBlockAtOrBeforeTimestamp(t *testing.T) {
	chain := irregularChain(500, 1_000_000)
	loc := NewLocator(chain, 12, nil, nil, zap.NewNop())

	head := chain.blocks[len(chain.blocks)-1]

	tests := []struct {
		name string
		ts   int64
	}{
		{"exact block timestamp", chain.blocks[123].Timestamp},
		{"one second after a block", chain.blocks[200].Timestamp + 1},
		{"one second before a block", chain.blocks[307].Timestamp - 1},
		{"middle of a long gap", chain.blocks[2].Timestamp + 15},
		{"genesis timestamp", chain.blocks[0].Timestamp},
		{"head timestamp", head.Timestamp},
		{"far beyond head", head.Timestamp + 1_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loc.Locate(context.Background(), tt.ts)
			require.NoError(t, err)

			want := latestAtOrBefore(chain.blocks, tt.ts)
			require.Equal(t, want.Number, got.Number)
			require.Equal(t, want.Timestamp, got.Timestamp)
		})
	}
}

func TestLocateSweepMatchesReference(t *testing.T) {
	chain := irregularChain(200, 5_000)
	loc := NewLocator(chain, 12, nil, nil, zap.NewNop())

	head := chain.blocks[len(chain.blocks)-1]
	for ts := chain.blocks[0].Timestamp; ts <= head.Timestamp; ts += 7 {
		got, err := loc.Locate(context.Background(), ts)
		require.NoError(t, err)
		require.Equal(t, latestAtOrBefore(chain.blocks, ts).Number, got.Number, "ts %d", ts)
	}
}

func TestLocateBeforeGenesisFails(t *testing.T) {
	chain := irregularChain(50, 1_000_000)
	loc := NewLocator(chain, 12, nil, nil, zap.NewNop())

	_, err := loc.Locate(context.Background(), 999_999)
	require.ErrorIs(t, err, ErrBeforeGenesis)

	_, err = loc.Locate(context.Background(), 0)
	require.ErrorIs(t, err, ErrBeforeGenesis)
}

func TestLocateReusesCache(t *testing.T) {
	chain := irregularChain(300, 1_000_000)
	loc := NewLocator(chain, 12, nil, nil, zap.NewNop())

	ts := chain.blocks[150].Timestamp + 1
	_, err := loc.Locate(context.Background(), ts)
	require.NoError(t, err)

	calls := chain.calls
	got, err := loc.Locate(context.Background(), ts)
	require.NoError(t, err)
	require.Equal(t, chain.blocks[150].Number, got.Number)
	require.Equal(t, calls, chain.calls, "second lookup of the same timestamp must be served from cache")
}

func TestLocatorCacheStaysSortedAndUnique(t *testing.T) {
	chain := irregularChain(300, 1_000_000)
	loc := NewLocator(chain, 12, nil, nil, zap.NewNop())

	for _, ts := range []int64{
		chain.blocks[250].Timestamp,
		chain.blocks[10].Timestamp + 3,
		chain.blocks[170].Timestamp - 1,
		chain.blocks[99].Timestamp,
	} {
		_, err := loc.Locate(context.Background(), ts)
		require.NoError(t, err)
	}

	cached := loc.Cached()
	require.NotEmpty(t, cached)
	for i := 1; i < len(cached); i++ {
		require.Greater(t, cached[i].Number, cached[i-1].Number)
		require.GreaterOrEqual(t, cached[i].Timestamp, cached[i-1].Timestamp)
	}
}

type recordingSink struct {
	put []domain.Block
}

func (r *recordingSink) Put(b domain.Block) error {
	r.put = append(r.put, b)
	return nil
}

func TestLocatorPersistsDiscoveredBlocksOnly(t *testing.T) {
	chain := irregularChain(100, 1_000_000)
	sink := &recordingSink{}
	seed := []domain.Block{chain.blocks[40], chain.blocks[60]}

	loc := NewLocator(chain, 12, sink, seed, zap.NewNop())
	require.Empty(t, sink.put, "seed blocks must not be written back")

	_, err := loc.Locate(context.Background(), chain.blocks[50].Timestamp)
	require.NoError(t, err)

	require.NotEmpty(t, sink.put)
	for _, b := range sink.put {
		require.NotEqual(t, uint64(40), b.Number)
		require.NotEqual(t, uint64(60), b.Number)
	}
}

func TestBlockAtCachesFetches(t *testing.T) {
	chain := irregularChain(20, 1_000_000)
	loc := NewLocator(chain, 12, nil, nil, zap.NewNop())

	b, err := loc.BlockAt(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, chain.blocks[7], b)

	calls := chain.calls
	_, err = loc.BlockAt(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, calls, chain.calls)
}
