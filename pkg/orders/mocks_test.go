package orders

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/finbound/defi-assistant/pkg/aggregator"
	"github.com/finbound/defi-assistant/pkg/ethereum"
	"github.com/finbound/defi-assistant/pkg/txmgr"
)

// MockOrderBook is a mock implementation of OrderBook
type MockOrderBook struct {
	GetTotalActiveOrdersFunc func(ctx context.Context) (*big.Int, error)
	GetActiveOrdersFunc      func(ctx context.Context, offset, limit *big.Int) ([]ethereum.OrderDetails, error)
}

func (m *MockOrderBook) GetTotalActiveOrders(ctx context.Context) (*big.Int, error) {
	if m.GetTotalActiveOrdersFunc != nil {
		return m.GetTotalActiveOrdersFunc(ctx)
	}
	return big.NewInt(0), nil
}

func (m *MockOrderBook) GetActiveOrders(ctx context.Context, offset, limit *big.Int) ([]ethereum.OrderDetails, error) {
	if m.GetActiveOrdersFunc != nil {
		return m.GetActiveOrdersFunc(ctx, offset, limit)
	}
	return nil, nil
}

// MockQuoteProvider is a mock implementation of QuoteProvider
type MockQuoteProvider struct {
	GetSwapQuoteFunc func(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.SwapQuote, error)
}

func (m *MockQuoteProvider) GetSwapQuote(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.SwapQuote, error) {
	if m.GetSwapQuoteFunc != nil {
		return m.GetSwapQuoteFunc(ctx, req)
	}
	return nil, nil
}

// MockSubmitter is a mock implementation of TxSubmitter
type MockSubmitter struct {
	SubmitFunc func(ctx context.Context, intent txmgr.Intent) (common.Hash, error)
}

func (m *MockSubmitter) Submit(ctx context.Context, intent txmgr.Intent) (common.Hash, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, intent)
	}
	return common.Hash{}, nil
}

// MockWaiter is a mock implementation of ReceiptWaiter
type MockWaiter struct {
	WaitMinedFunc func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

func (m *MockWaiter) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if m.WaitMinedFunc != nil {
		return m.WaitMinedFunc(ctx, hash)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
}

// MockTokenInfo is a mock implementation of TokenInfoProvider
type MockTokenInfo struct {
	InfoFunc func(ctx context.Context, token common.Address) ethereum.TokenInfo
}

func (m *MockTokenInfo) Info(ctx context.Context, token common.Address) ethereum.TokenInfo {
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx, token)
	}
	return ethereum.TokenInfo{Symbol: "TKN", Decimals: 18}
}
