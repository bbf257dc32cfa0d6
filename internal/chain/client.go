package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/bridgetvl/internal/domain"
	"github.com/vadiminshakov/bridgetvl/pkg/retrier"
)

// Client is the part of a chain node the pipeline depends on.
type Client interface {
	HeadBlock(ctx context.Context) (domain.Block, error)
	BlockByNumber(ctx context.Context, number uint64) (domain.Block, error)
	FilterLogs(ctx context.Context, address common.Address, topic common.Hash, from, to uint64) ([]types.Log, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

var decimalsSelector = crypto.Keccak256([]byte("decimals()"))[:4]

// EthClient adapts go-ethereum's ethclient to the Client interface.
// Single-block and view calls are retried with backoff; log filtering is
// not, the adaptive fetcher owns failure handling there.
type EthClient struct {
	ec      *ethclient.Client
	retrier *retrier.Retrier
}

func NewEthClient(ctx context.Context, rpcURL string) (*EthClient, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial rpc node %s", rpcURL)
	}
	return &EthClient{ec: ec, retrier: retrier.New()}, nil
}

func (c *EthClient) HeadBlock(ctx context.Context) (domain.Block, error) {
	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (domain.Block, error) {
		header, err := c.ec.HeaderByNumber(ctx, nil)
		if err != nil {
			return domain.Block{}, errors.Wrap(err, "fetch chain head")
		}
		return headerToBlock(header), nil
	})
}

func (c *EthClient) BlockByNumber(ctx context.Context, number uint64) (domain.Block, error) {
	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (domain.Block, error) {
		header, err := c.ec.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return domain.Block{}, errors.Wrapf(err, "fetch block %d", number)
		}
		return headerToBlock(header), nil
	})
}

func (c *EthClient) FilterLogs(ctx context.Context, address common.Address, topic common.Hash, from, to uint64) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{topic}},
	}
	return c.ec.FilterLogs(ctx, q)
}

func (c *EthClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (uint8, error) {
		out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &token, Data: decimalsSelector}, nil)
		if err != nil {
			return 0, errors.Wrapf(err, "call decimals() on %s", token.Hex())
		}
		if len(out) == 0 {
			return 0, retrier.Permanent(errors.Errorf("empty decimals() response from %s", token.Hex()))
		}
		dec := new(big.Int).SetBytes(out)
		if !dec.IsUint64() || dec.Uint64() > 255 {
			return 0, retrier.Permanent(errors.Errorf("implausible decimals value %s from %s", dec.String(), token.Hex()))
		}
		return uint8(dec.Uint64()), nil
	})
}

func (c *EthClient) Close() {
	c.ec.Close()
}

func headerToBlock(h *types.Header) domain.Block {
	return domain.Block{Number: h.Number.Uint64(), Timestamp: int64(h.Time)}
}
