package blockcache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir = "./wal/blocks"

	dirPermissions   = 0o755
	segmentThreshold = 10000
	maxSegments      = 100

	blockKeyPrefix = "block_"
)

// Store persists resolved (block number, timestamp) pairs in a WAL so later
// runs can seed the locator cache without touching the RPC endpoint.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewStore opens the block cache in dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure block cache directory %s", dir)
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           blockKeyPrefix,
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init block cache WAL")
	}

	return &Store{wal: wal}, nil
}

// Put appends one block to the cache. Rewrites of an already stored number
// are harmless, replay keeps the latest record.
func (s *Store) Put(b domain.Block) error {
	if s == nil || s.wal == nil {
		return errors.New("block cache is not initialized")
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "marshal block")
	}

	key := fmt.Sprintf("%s%d", blockKeyPrefix, b.Number)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// Blocks replays the WAL and returns every stored block, deduplicated by
// number and ascending. Records that fail to decode are skipped.
func (s *Store) Blocks() ([]domain.Block, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("block cache is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byNumber := make(map[uint64]domain.Block)
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, blockKeyPrefix) {
			continue
		}
		var b domain.Block
		if err := json.Unmarshal(msg.Value, &b); err != nil {
			continue
		}
		byNumber[b.Number] = b
	}

	blocks := make([]domain.Block, 0, len(byNumber))
	for _, b := range byNumber {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Number < blocks[j].Number })

	return blocks, nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("block cache is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
