package domain

import "math/big"

// BalanceEvent is a single signed custody change observed on the bridge.
// Amount is positive for deposits and negative for finalized withdrawals.
type BalanceEvent struct {
	Asset  AssetID
	Amount *big.Int
	Block  uint64
}

// AssetEvents groups balance events per asset, preserving the order in which
// assets were first observed.
type AssetEvents struct {
	ids  []AssetID
	byID map[AssetID][]BalanceEvent
}

func NewAssetEvents() *AssetEvents {
	return &AssetEvents{byID: make(map[AssetID][]BalanceEvent)}
}

// Add appends the event to its asset's sequence.
func (g *AssetEvents) Add(ev BalanceEvent) {
	if _, ok := g.byID[ev.Asset]; !ok {
		g.ids = append(g.ids, ev.Asset)
	}
	g.byID[ev.Asset] = append(g.byID[ev.Asset], ev)
}

// Assets returns the asset ids in first-seen order.
func (g *AssetEvents) Assets() []AssetID {
	return g.ids
}

// Events returns the event sequence of one asset.
func (g *AssetEvents) Events(id AssetID) []BalanceEvent {
	return g.byID[id]
}

// Len returns the number of distinct assets.
func (g *AssetEvents) Len() int {
	return len(g.ids)
}
