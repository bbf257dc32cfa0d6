package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vadiminshakov/bridgetvl/internal/chain"
)

// Preset is a known bridge deployment.
type Preset struct {
	Address         string
	DeployBlock     uint64
	SecondsPerBlock int64
	Platform        string
	NativeCoin      string
}

// Spec builds the bridge description for the preset.
func (p Preset) Spec() chain.BridgeSpec {
	return chain.NewBridgeSpec(common.HexToAddress(p.Address), p.DeployBlock, chain.StandardBridgeEvents())
}

var presets = map[string]Preset{
	"optimism": {
		Address:         "0x99C9fc46f92E8a1c0deC1b1747d010903E884bE1",
		DeployBlock:     12686786,
		SecondsPerBlock: 12,
		Platform:        "ethereum",
		NativeCoin:      "ethereum",
	},
	"base": {
		Address:         "0x3154Cf16ccdb4C6d922629664174b904d80F2C35",
		DeployBlock:     17482143,
		SecondsPerBlock: 12,
		Platform:        "ethereum",
		NativeCoin:      "ethereum",
	},
}

// Presets returns the known bridge names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveBridge(tmp ConfigTmp) (chain.BridgeSpec, *Preset, error) {
	name := strings.ToLower(tmp.Bridge)

	if name == "" || name == "custom" {
		if tmp.BridgeAddress == "" || tmp.DeployBlock == 0 {
			return chain.BridgeSpec{}, nil, fmt.Errorf("a custom bridge needs 'bridge_address' and 'deploy_block'")
		}
		if !common.IsHexAddress(tmp.BridgeAddress) {
			return chain.BridgeSpec{}, nil, fmt.Errorf("invalid bridge address %q", tmp.BridgeAddress)
		}
		spec := chain.NewBridgeSpec(common.HexToAddress(tmp.BridgeAddress), tmp.DeployBlock, chain.StandardBridgeEvents())
		return spec, nil, nil
	}

	preset, ok := presets[name]
	if !ok {
		return chain.BridgeSpec{}, nil, fmt.Errorf("unknown bridge %q (known: %s, or 'custom')",
			tmp.Bridge, strings.Join(Presets(), ", "))
	}

	address := preset.Address
	if tmp.BridgeAddress != "" {
		if !common.IsHexAddress(tmp.BridgeAddress) {
			return chain.BridgeSpec{}, nil, fmt.Errorf("invalid bridge address %q", tmp.BridgeAddress)
		}
		address = tmp.BridgeAddress
	}
	deployBlock := preset.DeployBlock
	if tmp.DeployBlock != 0 {
		deployBlock = tmp.DeployBlock
	}

	spec := chain.NewBridgeSpec(common.HexToAddress(address), deployBlock, chain.StandardBridgeEvents())
	return spec, &preset, nil
}
