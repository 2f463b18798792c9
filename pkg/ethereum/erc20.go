package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const erc20ABIJSON = `[
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

// TokenInfo holds ERC-20 metadata for a token contract
type TokenInfo struct {
	Symbol   string
	Decimals uint8
}

// TokenRegistry memoizes ERC-20 metadata per token address. Metadata is
// immutable on-chain so entries never expire.
type TokenRegistry struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[common.Address]TokenInfo
}

// NewTokenRegistry creates a token metadata registry backed by the given RPC client
func NewTokenRegistry(backend Backend, logger *zap.Logger) *TokenRegistry {
	return &TokenRegistry{
		backend: backend,
		logger:  logger,
		cache:   make(map[common.Address]TokenInfo),
	}
}

// Info returns symbol and decimals for a token, fetching and caching them on
// first use. Decimals fall back to 18 and the symbol to "Unknown" when the
// token does not answer, matching how withdrawals are displayed.
func (r *TokenRegistry) Info(ctx context.Context, token common.Address) TokenInfo {
	r.mu.Lock()
	if info, ok := r.cache[token]; ok {
		r.mu.Unlock()
		return info
	}
	r.mu.Unlock()

	info := TokenInfo{Symbol: "Unknown", Decimals: 18}

	symbol, err := r.callString(ctx, token, "symbol")
	if err != nil {
		r.logger.Error("Failed to fetch token symbol",
			zap.String("token", token.Hex()),
			zap.Error(err))
	} else {
		info.Symbol = symbol
	}

	decimals, err := r.callUint8(ctx, token, "decimals")
	if err != nil {
		r.logger.Error("Failed to fetch token decimals",
			zap.String("token", token.Hex()),
			zap.Error(err))
	} else {
		info.Decimals = decimals
	}

	// Cache even fallback values; a token that reverts on metadata calls will
	// keep reverting.
	r.mu.Lock()
	r.cache[token] = info
	r.mu.Unlock()

	return info
}

// Decimals returns the token's decimals, memoized
func (r *TokenRegistry) Decimals(ctx context.Context, token common.Address) uint8 {
	return r.Info(ctx, token).Decimals
}

func (r *TokenRegistry) call(ctx context.Context, token common.Address, method string) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	ret, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	return erc20ABI.Unpack(method, ret)
}

func (r *TokenRegistry) callString(ctx context.Context, token common.Address, method string) (string, error) {
	out, err := r.call(ctx, token, method)
	if err != nil {
		return "", err
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s return type %T", method, out[0])
	}
	return s, nil
}

func (r *TokenRegistry) callUint8(ctx context.Context, token common.Address, method string) (uint8, error) {
	out, err := r.call(ctx, token, method)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected %s return type %T", method, out[0])
	}
	return v, nil
}

// BalanceOf reads an ERC-20 balance
func (r *TokenRegistry) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}
	ret, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call failed: %w", err)
	}
	out, err := erc20ABI.Unpack("balanceOf", ret)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}
