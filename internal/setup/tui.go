package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vadiminshakov/bridgetvl/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		bridgeName    string
		rpcURL        string
		bridgeAddress string
		deployBlock   string
		fromStr       string
		toStr         string
		intervalStr   string
		source        string
		currency      string
		nativeSymbol  string
		outPath       string
		confirm       bool
	)

	// defaults
	source = "coingecko"
	currency = "usd"

	// step 1: bridge
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's reconstruct some locked value.\n"))

	fmt.Println(stepStyle.Render("STEP 1: BRIDGE"))
	bridgeOptions := make([]huh.Option[string], 0, len(config.Presets())+1)
	for _, name := range config.Presets() {
		bridgeOptions = append(bridgeOptions, huh.NewOption(title(name), name))
	}
	bridgeOptions = append(bridgeOptions, huh.NewOption("Custom (enter contract manually)", "custom"))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the bridge to analyze").
				Options(bridgeOptions...).
				Value(&bridgeName),
		),
	).Run()
	if err != nil {
		return err
	}

	// chain access
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: CHAIN"))

	chainFields := []huh.Field{
		huh.NewInput().
			Title("L1 RPC URL").
			Description("Archive node endpoint (e.g. https://eth.llamarpc.com)").
			Value(&rpcURL).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("rpc URL cannot be empty")
				}
				if !strings.Contains(s, "://") {
					return fmt.Errorf("must be a URL (e.g. https://... or wss://...)")
				}
				return nil
			}),
	}

	if bridgeName == "custom" {
		chainFields = append(chainFields,
			huh.NewInput().
				Title("Bridge Contract Address").
				Description("0x-prefixed hex address on L1").
				Value(&bridgeAddress).
				Validate(func(s string) error {
					if !common.IsHexAddress(s) {
						return fmt.Errorf("not a valid hex address")
					}
					return nil
				}),
			huh.NewInput().
				Title("Deploy Block").
				Description("Block number of the bridge deployment").
				Value(&deployBlock).
				Validate(func(s string) error {
					n, err := strconv.ParseUint(s, 10, 64)
					if err != nil || n == 0 {
						return fmt.Errorf("must be a positive block number")
					}
					return nil
				}),
		)
	}

	err = huh.NewForm(huh.NewGroup(chainFields...)).Run()
	if err != nil {
		return err
	}

	// range
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: RANGE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("From").
				Description("RFC3339 time (e.g. 2024-05-01T00:00:00Z), empty for 24h before To").
				Value(&fromStr).
				Validate(validateOptionalTime),
			huh.NewInput().
				Title("To").
				Description("RFC3339 time, empty for now").
				Value(&toStr).
				Validate(validateOptionalTime),
			huh.NewInput().
				Title("TWAP Interval").
				Description("Duration string (e.g. 1h, 24h), empty for automatic").
				Value(&intervalStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// price source
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: PRICES"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Price Source").
				Options(
					huh.NewOption("CoinGecko", "coingecko"),
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
				).
				Value(&source),
			huh.NewInput().
				Title("Quote Currency").
				Description("e.g. usd, eur (exchanges quote in their listed pairs)").
				Value(&currency).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("currency cannot be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	if source != "coingecko" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 5: SYMBOLS"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Native Coin Symbol").
					Description("Trading symbol for the native coin (e.g. ETHUSDT, or ETH on Hyperliquid). Token symbols go under 'symbols' in the generated yaml.").
					Value(&nativeSymbol).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("exchange sources need a trading symbol")
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// output
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 6: OUTPUT"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Report File").
				Description("Path for the CSV report, empty for stdout").
				Value(&outPath),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BRIDGETVL CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	// show summary
	summary := fmt.Sprintf(
		"Bridge: %s\nRPC: %s\nFrom: %s\nTo: %s\nInterval: %s\nPrices: %s (%s)\nOutput: %s\n",
		bridgeName, rpcURL,
		valueOr(fromStr, "24h before To"), valueOr(toStr, "now"), valueOr(intervalStr, "auto"),
		source, currency, valueOr(outPath, "stdout"),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and run").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	// generate config
	cfgTmp := config.ConfigTmp{
		RPCURL:      rpcURL,
		Bridge:      bridgeName,
		Currency:    currency,
		PriceSource: source,
		Out:         outPath,
	}
	if bridgeName == "custom" {
		cfgTmp.BridgeAddress = bridgeAddress
		cfgTmp.DeployBlock, _ = strconv.ParseUint(deployBlock, 10, 64)
	}
	if fromStr != "" {
		from, _ := time.Parse(time.RFC3339, fromStr)
		cfgTmp.From = from.Unix()
	}
	if toStr != "" {
		to, _ := time.Parse(time.RFC3339, toStr)
		cfgTmp.To = to.Unix()
	}
	if intervalStr != "" {
		cfgTmp.Interval, _ = time.ParseDuration(intervalStr)
	}
	if nativeSymbol != "" {
		cfgTmp.Symbols = map[string]string{"native": nativeSymbol}
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	// write to config.gen.yaml
	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting analysis...", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validateOptionalTime(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return fmt.Errorf("must be RFC3339 (e.g. 2024-05-01T00:00:00Z)")
	}
	return nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
