package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vadiminshakov/bridgetvl/internal/chain"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config is the resolved run configuration.
type Config struct {
	RPCURL          string
	Bridge          chain.BridgeSpec
	SecondsPerBlock int64
	Currency        string
	From            time.Time
	To              time.Time
	Interval        time.Duration
	PriceSource     string
	Symbols         map[domain.AssetID]string
	Platform        string
	NativeCoin      string
	CacheDir        string
	Out             string
	Setup           bool
}

// ConfigTmp mirrors the yaml layout before validation.
type ConfigTmp struct {
	RPCURL          string            `yaml:"rpc"`
	Bridge          string            `yaml:"bridge"`
	BridgeAddress   string            `yaml:"bridge_address,omitempty"`
	DeployBlock     uint64            `yaml:"deploy_block,omitempty"`
	SecondsPerBlock int64             `yaml:"seconds_per_block,omitempty"`
	Currency        string            `yaml:"currency,omitempty"`
	From            int64             `yaml:"from,omitempty"`
	To              int64             `yaml:"to,omitempty"`
	Interval        time.Duration     `yaml:"interval,omitempty"`
	PriceSource     string            `yaml:"price_source,omitempty"`
	Symbols         map[string]string `yaml:"symbols,omitempty"`
	Platform        string            `yaml:"platform,omitempty"`
	NativeCoin      string            `yaml:"native_coin,omitempty"`
	CacheDir        string            `yaml:"cache_dir,omitempty"`
	Out             string            `yaml:"out,omitempty"`
}

func Get() (*Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	setup := flag.Bool("setup", false, "run the interactive configuration wizard")
	rpc := flag.String("rpc", "", "chain node RPC URL")
	bridge := flag.String("bridge", "optimism", "bridge preset name, or 'custom' with a yaml config")
	from := flag.Int64("from", 0, "range start as unix seconds (default: 24h before --to)")
	to := flag.Int64("to", 0, "range end as unix seconds (default: now)")
	interval := flag.Duration("interval", 0, "TWAP sub-interval (default: 1h for ranges up to a day, else 24h)")
	currency := flag.String("currency", "usd", "quote currency code")
	source := flag.String("source", "coingecko", "price source: coingecko, binance, bybit or hyperliquid")
	out := flag.String("out", "", "write the report to this file instead of stdout")
	flag.Parse()

	if *setup {
		return &Config{Setup: true}, nil
	}
	if *configPath != "" {
		return FromFile(*configPath)
	}

	return fromTmp(ConfigTmp{
		RPCURL:      *rpc,
		Bridge:      *bridge,
		From:        *from,
		To:          *to,
		Interval:    *interval,
		Currency:    *currency,
		PriceSource: *source,
		Out:         *out,
	})
}

// FromFile loads and validates a yaml config.
func FromFile(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, err
	}
	return fromTmp(tmp)
}

func fromTmp(tmp ConfigTmp) (*Config, error) {
	if tmp.RPCURL == "" {
		return nil, fmt.Errorf("rpc URL is required (--rpc or 'rpc' in yaml config)")
	}

	bridge, preset, err := resolveBridge(tmp)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCURL:          tmp.RPCURL,
		Bridge:          bridge,
		SecondsPerBlock: tmp.SecondsPerBlock,
		Currency:        strings.ToLower(tmp.Currency),
		PriceSource:     strings.ToLower(tmp.PriceSource),
		Platform:        tmp.Platform,
		NativeCoin:      tmp.NativeCoin,
		CacheDir:        tmp.CacheDir,
		Out:             tmp.Out,
	}

	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.PriceSource == "" {
		cfg.PriceSource = "coingecko"
	}
	if cfg.SecondsPerBlock == 0 && preset != nil {
		cfg.SecondsPerBlock = preset.SecondsPerBlock
	}
	if cfg.Platform == "" {
		cfg.Platform = "ethereum"
		if preset != nil {
			cfg.Platform = preset.Platform
		}
	}
	if cfg.NativeCoin == "" {
		cfg.NativeCoin = "ethereum"
		if preset != nil {
			cfg.NativeCoin = preset.NativeCoin
		}
	}

	cfg.To = time.Now()
	if tmp.To != 0 {
		cfg.To = time.Unix(tmp.To, 0)
	}
	cfg.From = cfg.To.Add(-24 * time.Hour)
	if tmp.From != 0 {
		cfg.From = time.Unix(tmp.From, 0)
	}
	if !cfg.From.Before(cfg.To) {
		return nil, fmt.Errorf("'from' (%d) must be before 'to' (%d)", cfg.From.Unix(), cfg.To.Unix())
	}

	cfg.Interval = tmp.Interval
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
		if cfg.To.Sub(cfg.From) <= 24*time.Hour {
			cfg.Interval = time.Hour
		}
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("'interval' must be positive, got %s", cfg.Interval)
	}

	cfg.Symbols = make(map[domain.AssetID]string, len(tmp.Symbols))
	for k, v := range tmp.Symbols {
		cfg.Symbols[domain.AssetID(strings.ToLower(k))] = v
	}

	return cfg, nil
}
