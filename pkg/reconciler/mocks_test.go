package reconciler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/finbound/defi-assistant/pkg/db"
	"github.com/finbound/defi-assistant/pkg/db/dao"
	"github.com/finbound/defi-assistant/pkg/ethereum"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	GetUserByWalletFunc     func(ctx context.Context, address string) (*dao.UserDao, error)
	AddBalanceFunc          func(ctx context.Context, userID, token, amount, symbol string, decimals int) error
	SubtractBalanceFunc     func(ctx context.Context, userID, token, amount string) error
	InsertActivityFunc      func(ctx context.Context, activity *dao.TradingActivityDao) error
	InsertLimitOrderFunc    func(ctx context.Context, order *dao.LimitOrderDao) error
	GetOrderByOrderIDFunc   func(ctx context.Context, orderID string) (*dao.LimitOrderDao, error)
	MarkOrderExecutedFunc   func(ctx context.Context, orderID, txHash string, metadata map[string]interface{}) (bool, error)
	MarkOrderCancelledFunc  func(ctx context.Context, orderID string) (bool, error)
	FindPendingStrategyFunc func(ctx context.Context, userID, tokenIn, tokenOut string) (*dao.PendingStrategyDao, error)
	MarkStrategyUsedFunc    func(ctx context.Context, id int64, orderID string) error
	ApplySwapExecutionFunc  func(ctx context.Context, ex db.SwapExecution) error
}

func (m *MockStore) GetUserByWallet(ctx context.Context, address string) (*dao.UserDao, error) {
	if m.GetUserByWalletFunc != nil {
		return m.GetUserByWalletFunc(ctx, address)
	}
	return nil, db.ErrUserNotFound
}

func (m *MockStore) AddBalance(ctx context.Context, userID, token, amount, symbol string, decimals int) error {
	if m.AddBalanceFunc != nil {
		return m.AddBalanceFunc(ctx, userID, token, amount, symbol, decimals)
	}
	return nil
}

func (m *MockStore) SubtractBalance(ctx context.Context, userID, token, amount string) error {
	if m.SubtractBalanceFunc != nil {
		return m.SubtractBalanceFunc(ctx, userID, token, amount)
	}
	return nil
}

func (m *MockStore) InsertActivity(ctx context.Context, activity *dao.TradingActivityDao) error {
	if m.InsertActivityFunc != nil {
		return m.InsertActivityFunc(ctx, activity)
	}
	return nil
}

func (m *MockStore) InsertLimitOrder(ctx context.Context, order *dao.LimitOrderDao) error {
	if m.InsertLimitOrderFunc != nil {
		return m.InsertLimitOrderFunc(ctx, order)
	}
	return nil
}

func (m *MockStore) GetOrderByOrderID(ctx context.Context, orderID string) (*dao.LimitOrderDao, error) {
	if m.GetOrderByOrderIDFunc != nil {
		return m.GetOrderByOrderIDFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *MockStore) MarkOrderExecuted(ctx context.Context, orderID, txHash string, metadata map[string]interface{}) (bool, error) {
	if m.MarkOrderExecutedFunc != nil {
		return m.MarkOrderExecutedFunc(ctx, orderID, txHash, metadata)
	}
	return true, nil
}

func (m *MockStore) MarkOrderCancelled(ctx context.Context, orderID string) (bool, error) {
	if m.MarkOrderCancelledFunc != nil {
		return m.MarkOrderCancelledFunc(ctx, orderID)
	}
	return true, nil
}

func (m *MockStore) FindPendingStrategy(ctx context.Context, userID, tokenIn, tokenOut string) (*dao.PendingStrategyDao, error) {
	if m.FindPendingStrategyFunc != nil {
		return m.FindPendingStrategyFunc(ctx, userID, tokenIn, tokenOut)
	}
	return nil, nil
}

func (m *MockStore) MarkStrategyUsed(ctx context.Context, id int64, orderID string) error {
	if m.MarkStrategyUsedFunc != nil {
		return m.MarkStrategyUsedFunc(ctx, id, orderID)
	}
	return nil
}

func (m *MockStore) ApplySwapExecution(ctx context.Context, ex db.SwapExecution) error {
	if m.ApplySwapExecutionFunc != nil {
		return m.ApplySwapExecutionFunc(ctx, ex)
	}
	return nil
}

// MockNotifier records stream updates
type MockNotifier struct {
	Updates []struct {
		UserID  string
		Message string
	}
}

func (m *MockNotifier) StreamUpdate(ctx context.Context, userID, message string) {
	m.Updates = append(m.Updates, struct {
		UserID  string
		Message string
	}{userID, message})
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
