package tvl

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

type change struct {
	ts    int64
	delta decimal.Decimal
}

// MergeTotal folds per-asset value series into one total series by delta
// propagation: each point contributes only its change against the previous
// point of the same asset, so the merge costs O(total points), not
// O(points x assets). Points before start are dropped; their value arrives
// through the first in-range delta instead.
func MergeTotal(series [][]domain.SeriesPoint, start int64) []domain.SeriesPoint {
	var changes []change
	for _, points := range series {
		prev := decimal.Zero
		for _, p := range points {
			if p.Timestamp < start {
				continue
			}
			changes = append(changes, change{ts: p.Timestamp, delta: p.Value.Sub(prev)})
			prev = p.Value
		}
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].ts < changes[j].ts })

	total := make([]domain.SeriesPoint, 0, len(changes))
	running := decimal.Zero
	for _, c := range changes {
		running = running.Add(c.delta)
		if n := len(total); n > 0 && total[n-1].Timestamp == c.ts {
			total[n-1].Value = running
			continue
		}
		total = append(total, domain.SeriesPoint{Timestamp: c.ts, Value: running})
	}
	return total
}
