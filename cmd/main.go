// Command bridgetvl reconstructs the total value locked in a bridge
// contract over a time range and reports its time-weighted average.
// It replays deposit and withdrawal events from an L1 node, prices the
// balances through a market data source and prints a CSV report.
//
// Usage:
//
//	bridgetvl --rpc https://eth.example.com --from 1714521600 --to 1714608000
//	bridgetvl --config config.yaml
//	bridgetvl --setup (interactive wizard)
//
// Required environment variables:
//
//	For Binance prices: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit prices: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/hirokisan/bybit/v2"
	"github.com/vadiminshakov/bridgetvl/config"
	"github.com/vadiminshakov/bridgetvl/internal/chain"
	"github.com/vadiminshakov/bridgetvl/internal/pricing"
	"github.com/vadiminshakov/bridgetvl/internal/report"
	"github.com/vadiminshakov/bridgetvl/internal/services/tvl"
	"github.com/vadiminshakov/bridgetvl/internal/setup"
	"github.com/vadiminshakov/bridgetvl/internal/storage/blockcache"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Setup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		cfg, err = config.FromFile("config.gen.yaml")
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	logger = logger.With(zap.String("run", uuid.New().String()))

	ctx := context.Background()

	client, err := chain.NewEthClient(ctx, cfg.RPCURL)
	if err != nil {
		logger.Fatal("failed to connect to the chain node", zap.Error(err))
	}
	defer client.Close()

	var locator *chain.Locator
	store, err := blockcache.NewStore(cfg.CacheDir)
	if err != nil {
		logger.Warn("block cache unavailable, continuing without it", zap.Error(err))
		locator = chain.NewLocator(client, cfg.SecondsPerBlock, nil, nil, logger)
	} else {
		defer store.Close()
		seed, err := store.Blocks()
		if err != nil {
			logger.Warn("failed to replay block cache", zap.Error(err))
		}
		locator = chain.NewLocator(client, cfg.SecondsPerBlock, store, seed, logger)
	}
	fetcher := chain.NewFetcher(client, cfg.Bridge, logger)

	prices, err := priceSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up the price source", zap.Error(err))
	}

	analyzer := tvl.NewAnalyzer(locator, fetcher, client, prices, cfg.Bridge, logger)

	rep, err := analyzer.Run(ctx, tvl.Range{
		Start:    cfg.From.Unix(),
		End:      cfg.To.Unix(),
		Interval: int64(cfg.Interval.Seconds()),
		Currency: cfg.Currency,
	})
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	if cfg.Out == "" {
		if err := report.Write(os.Stdout, rep); err != nil {
			logger.Fatal("failed to write the report", zap.Error(err))
		}
		return
	}

	f, err := os.Create(cfg.Out)
	if err != nil {
		logger.Fatal("failed to create the report file", zap.Error(err))
	}
	if err := report.Write(f, rep); err != nil {
		f.Close()
		logger.Fatal("failed to write the report", zap.Error(err))
	}
	if err := f.Close(); err != nil {
		logger.Fatal("failed to finish the report file", zap.Error(err))
	}

	fmt.Println(report.StyledSummary(rep))
	fmt.Printf("report saved to %s\n", cfg.Out)
}

func priceSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (pricing.Source, error) {
	switch cfg.PriceSource {
	case "coingecko":
		return pricing.NewCoinGecko("", cfg.Platform, cfg.NativeCoin, cfg.Currency, logger), nil
	case "binance":
		client := binance.NewClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
		return pricing.NewBinance(client, cfg.Symbols), nil
	case "bybit":
		client := bybit.NewClient().WithAuth(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))
		return pricing.NewBybit(client, cfg.Symbols), nil
	case "hyperliquid":
		return pricing.NewHyperliquid(ctx, "", cfg.Symbols)
	default:
		return nil, fmt.Errorf("unsupported price source %q", cfg.PriceSource)
	}
}
