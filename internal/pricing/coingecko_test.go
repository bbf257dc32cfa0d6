package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"github.com/vadiminshakov/bridgetvl/pkg/retrier"
	"go.uber.org/zap"
)

const usdtContract = domain.AssetID("0xdac17f958d2ee523a2206206994597c13d831ec7")

func TestCoinGeckoPriceRangeForToken(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"prices":[[1700003600000,1.02],[1700000000000,0.98],[1700007200000,1.05]]}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "ethereum", "ethereum", "usd", zap.NewNop())

	points, err := cg.PriceRange(context.Background(), usdtContract, time.Unix(1_700_000_000, 0), time.Unix(1_700_010_000, 0))
	require.NoError(t, err)

	require.Equal(t, "/coins/ethereum/contract/"+string(usdtContract)+"/market_chart/range", gotPath)
	require.Contains(t, gotQuery, "vs_currency=usd")
	require.Contains(t, gotQuery, "from=1700000000")
	require.Contains(t, gotQuery, "to=1700010000")

	require.Len(t, points, 3)
	for i := 1; i < len(points); i++ {
		require.Greater(t, points[i].Timestamp, points[i-1].Timestamp, "points must come back sorted")
	}
	require.Equal(t, int64(1700000000000), points[0].Timestamp)
	require.Equal(t, "0.98", points[0].Price.String())
}

func TestCoinGeckoPriceRangeForNative(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"prices":[[1700000000000,2000.5]]}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "ethereum", "ethereum", "usd", zap.NewNop())

	points, err := cg.PriceRange(context.Background(), domain.NativeAsset, time.Unix(1_700_000_000, 0), time.Unix(1_700_010_000, 0))
	require.NoError(t, err)
	require.Equal(t, "/coins/ethereum/market_chart/range", gotPath)
	require.Len(t, points, 1)
	require.Equal(t, "2000.5", points[0].Price.String())
}

func TestCoinGeckoRetriesServerErrors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"prices":[[1700000000000,42.0]]}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "ethereum", "ethereum", "usd", zap.NewNop())
	cg.retrier = retrier.New(retrier.WithMaxRetries(4), retrier.WithInitialInterval(time.Millisecond))

	points, err := cg.PriceRange(context.Background(), domain.NativeAsset, time.Unix(1_700_000_000, 0), time.Unix(1_700_010_000, 0))
	require.NoError(t, err)
	require.Equal(t, 3, requests)
	require.Len(t, points, 1)
}

func TestCoinGeckoDoesNotRetryClientErrors(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"coin not found"}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "ethereum", "ethereum", "usd", zap.NewNop())
	cg.retrier = retrier.New(retrier.WithMaxRetries(4), retrier.WithInitialInterval(time.Millisecond))

	_, err := cg.PriceRange(context.Background(), usdtContract, time.Unix(1_700_000_000, 0), time.Unix(1_700_010_000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
	require.Equal(t, 1, requests, "a 404 must not be retried")
}

func TestCoinGeckoMalformedResponseIsNotRetried(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"prices": [[17000`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "ethereum", "ethereum", "usd", zap.NewNop())
	cg.retrier = retrier.New(retrier.WithMaxRetries(4), retrier.WithInitialInterval(time.Millisecond))

	_, err := cg.PriceRange(context.Background(), domain.NativeAsset, time.Unix(1_700_000_000, 0), time.Unix(1_700_010_000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
	require.Equal(t, 1, requests, "a decoding failure must not be retried")
}

func TestCoinGeckoEmptyPricesIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[]}`))
	}))
	defer srv.Close()

	cg := NewCoinGecko(srv.URL, "ethereum", "ethereum", "usd", zap.NewNop())

	_, err := cg.PriceRange(context.Background(), domain.NativeAsset, time.Unix(1_700_000_000, 0), time.Unix(1_700_010_000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no prices")
}

func TestSymbolForErrorMessage(t *testing.T) {
	symbols := map[domain.AssetID]string{
		domain.NativeAsset: "ETHUSDT",
		usdtContract:       "USDTUSDC",
	}

	s, err := symbolFor("binance", symbols, domain.NativeAsset)
	require.NoError(t, err)
	require.Equal(t, "ETHUSDT", s)

	_, err = symbolFor("binance", symbols, domain.AssetID("0xdeadbeef"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no binance trading symbol")
}
