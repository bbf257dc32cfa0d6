package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
)

// EventDef describes one bridge event kind: where the asset and the amount
// live in the log, and which sign the amount carries.
type EventDef struct {
	Name       string
	Signature  string
	Native     bool
	Withdrawal bool
	AssetTopic int // topic index of the L1 token address, token events only
	AmountWord int // 32-byte word index of the amount in the log data

	topic common.Hash
}

// Topic returns the keccak hash of the event signature.
func (d EventDef) Topic() common.Hash {
	return d.topic
}

// BridgeSpec is the immutable description of one bridge deployment. Built
// once at startup and passed by value, never global state.
type BridgeSpec struct {
	Address     common.Address
	DeployBlock uint64
	Events      []EventDef
}

// NewBridgeSpec copies the event defs and precomputes their topics.
func NewBridgeSpec(address common.Address, deployBlock uint64, events []EventDef) BridgeSpec {
	defs := make([]EventDef, len(events))
	copy(defs, events)
	for i := range defs {
		defs[i].topic = crypto.Keccak256Hash([]byte(defs[i].Signature))
	}
	return BridgeSpec{Address: address, DeployBlock: deployBlock, Events: defs}
}

// StandardBridgeEvents is the event layout of an OP-stack L1StandardBridge:
// native and token deposits flow in, finalized withdrawals flow out.
func StandardBridgeEvents() []EventDef {
	return []EventDef{
		{
			Name:       "ETHDepositInitiated",
			Signature:  "ETHDepositInitiated(address,address,uint256,bytes)",
			Native:     true,
			AmountWord: 0,
		},
		{
			Name:       "ERC20DepositInitiated",
			Signature:  "ERC20DepositInitiated(address,address,address,address,uint256,bytes)",
			AssetTopic: 1,
			AmountWord: 1,
		},
		{
			Name:       "ETHWithdrawalFinalized",
			Signature:  "ETHWithdrawalFinalized(address,address,uint256,bytes)",
			Native:     true,
			Withdrawal: true,
			AmountWord: 0,
		},
		{
			Name:       "ERC20WithdrawalFinalized",
			Signature:  "ERC20WithdrawalFinalized(address,address,address,address,uint256,bytes)",
			AssetTopic: 1,
			Withdrawal: true,
			AmountWord: 1,
		},
	}
}

// DecodeLog extracts a signed balance event from a raw log.
func DecodeLog(def EventDef, lg types.Log) (domain.BalanceEvent, error) {
	if need := (def.AmountWord + 1) * 32; len(lg.Data) < need {
		return domain.BalanceEvent{}, errors.Errorf("%s log at block %d: data too short (%d bytes, want at least %d)",
			def.Name, lg.BlockNumber, len(lg.Data), need)
	}

	asset := domain.NativeAsset
	if !def.Native {
		if len(lg.Topics) <= def.AssetTopic {
			return domain.BalanceEvent{}, errors.Errorf("%s log at block %d: missing token address topic", def.Name, lg.BlockNumber)
		}
		asset = domain.AssetIDFromAddress(common.BytesToAddress(lg.Topics[def.AssetTopic].Bytes()))
	}

	amount := new(big.Int).SetBytes(lg.Data[def.AmountWord*32 : (def.AmountWord+1)*32])
	if def.Withdrawal {
		amount.Neg(amount)
	}

	return domain.BalanceEvent{Asset: asset, Amount: amount, Block: lg.BlockNumber}, nil
}
