// Package pricing provides historical price sources for bridged assets.
package pricing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

// Source returns historical prices for one asset, ascending by timestamp.
type Source interface {
	PriceRange(ctx context.Context, asset domain.AssetID, from, to time.Time) ([]domain.PricePoint, error)
}

// symbolFor resolves the exchange symbol configured for an asset.
func symbolFor(source string, symbols map[domain.AssetID]string, asset domain.AssetID) (string, error) {
	if s, ok := symbols[asset]; ok && s != "" {
		return s, nil
	}
	return "", errors.Errorf("no %s trading symbol configured for asset %s", source, asset)
}
