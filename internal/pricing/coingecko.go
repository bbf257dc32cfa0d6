package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"github.com/vadiminshakov/bridgetvl/pkg/retrier"
	"go.uber.org/zap"
)

const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

	coingeckoTimeout = 30 * time.Second
	coingeckoRetries = 5
)

// CoinGecko reads historical prices from the market chart API. Tokens are
// looked up by contract address on the configured platform, the native
// asset by its coin id, so no per-asset symbol table is needed.
type CoinGecko struct {
	httpClient *http.Client
	baseURL    string
	platform   string
	nativeCoin string
	currency   string
	retrier    *retrier.Retrier
	logger     *zap.Logger
}

// NewCoinGecko creates a price source against baseURL (the public API when
// empty). platform is the CoinGecko asset platform id for token contract
// lookups, nativeCoin the coin id of the chain's native asset.
func NewCoinGecko(baseURL, platform, nativeCoin, currency string, logger *zap.Logger) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGecko{
		httpClient: &http.Client{Timeout: coingeckoTimeout},
		baseURL:    baseURL,
		platform:   platform,
		nativeCoin: nativeCoin,
		currency:   currency,
		retrier: retrier.New(
			retrier.WithMaxRetries(coingeckoRetries),
			retrier.WithNotify(func(attempt int, err error) {
				logger.Warn("retrying coingecko request", zap.Int("attempt", attempt), zap.Error(err))
			}),
		),
		logger: logger,
	}
}

// marketRange mirrors the market_chart/range response. Rows are
// [unix milliseconds, price].
type marketRange struct {
	Prices [][]float64 `json:"prices"`
}

func (c *CoinGecko) PriceRange(ctx context.Context, asset domain.AssetID, from, to time.Time) ([]domain.PricePoint, error) {
	var endpoint string
	if asset.IsNative() {
		endpoint = fmt.Sprintf("%s/coins/%s/market_chart/range", c.baseURL, c.nativeCoin)
	} else {
		endpoint = fmt.Sprintf("%s/coins/%s/contract/%s/market_chart/range", c.baseURL, c.platform, asset)
	}

	query := url.Values{}
	query.Set("vs_currency", c.currency)
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))
	endpoint += "?" + query.Encode()

	chart, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (marketRange, error) {
		return c.fetchRange(ctx, endpoint)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "coingecko price range for %s", asset)
	}

	points := make([]domain.PricePoint, 0, len(chart.Prices))
	for _, row := range chart.Prices {
		if len(row) < 2 {
			continue
		}
		points = append(points, domain.PricePoint{
			Timestamp: int64(row[0]),
			Price:     decimal.NewFromFloat(row[1]),
		})
	}
	if len(points) == 0 {
		return nil, errors.Errorf("coingecko returned no prices for %s between %d and %d", asset, from.Unix(), to.Unix())
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}

// fetchRange performs one API call. Rate limits and server errors are left
// retryable, everything else is permanent.
func (c *CoinGecko) fetchRange(ctx context.Context, endpoint string) (marketRange, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return marketRange{}, retrier.Permanent(errors.Wrap(err, "failed to create HTTP request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return marketRange{}, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return marketRange{}, errors.Wrap(err, "failed to read response body")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return marketRange{}, fmt.Errorf("coingecko returned status %d: %s", resp.StatusCode, string(body))
	default:
		return marketRange{}, retrier.Permanent(fmt.Errorf("coingecko returned status %d: %s", resp.StatusCode, string(body)))
	}

	var chart marketRange
	if err := json.Unmarshal(body, &chart); err != nil {
		return marketRange{}, retrier.Permanent(errors.Wrap(err, "failed to unmarshal response"))
	}
	return chart, nil
}
