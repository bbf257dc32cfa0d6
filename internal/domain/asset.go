package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies a bridged asset: the chain's native coin or an ERC-20
// token by its lowercase hex address.
type AssetID string

// NativeAsset is the sentinel id for the chain's native coin.
const NativeAsset AssetID = "native"

// NativeDecimals is the fixed precision of the native coin.
const NativeDecimals uint8 = 18

// AssetIDFromAddress converts a token contract address to its asset id.
func AssetIDFromAddress(addr common.Address) AssetID {
	return AssetID(strings.ToLower(addr.Hex()))
}

// IsNative reports whether the id denotes the native coin.
func (a AssetID) IsNative() bool {
	return a == NativeAsset
}

// Address returns the token contract address. Meaningless for the native
// asset, callers must check IsNative first.
func (a AssetID) Address() common.Address {
	return common.HexToAddress(string(a))
}

func (a AssetID) String() string {
	return string(a)
}
