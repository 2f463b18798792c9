package reconciler

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/db"
	"github.com/finbound/defi-assistant/pkg/db/dao"
	"github.com/finbound/defi-assistant/pkg/ethereum"
)

var (
	testWallet  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTokenIn = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testToken   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testWNative = "0x4444444444444444444444444444444444444444"
)

func testEthereumConfig() *config.EthereumConfig {
	return &config.EthereumConfig{
		WrappedNative: testWNative,
		NativeSymbol:  "S",
	}
}

func knownUserStore() *MockStore {
	return &MockStore{
		GetUserByWalletFunc: func(ctx context.Context, address string) (*dao.UserDao, error) {
			return &dao.UserDao{ID: "user-1", WalletAddress: address}, nil
		},
	}
}

func newTestHandlers(store Store, notifier *MockNotifier) *Handlers {
	return NewHandlers(store, &MockTokenInfo{}, notifier, testEthereumConfig(), zap.NewNop())
}

// eventLog packs non-indexed args the way the node would and sets the event
// signature topic, plus the indexed orderId for limit order events
func eventLog(t *testing.T, name string, orderID *[32]byte, args ...interface{}) types.Log {
	t.Helper()
	event, ok := ethereum.CustodyABI.Events[name]
	require.True(t, ok, "unknown event %s", name)

	data, err := event.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)

	topics := []common.Hash{event.ID}
	if orderID != nil {
		topics = append(topics, common.Hash(*orderID))
	}
	return types.Log{
		Topics: topics,
		Data:   data,
		TxHash: common.Hash{0xfe},
	}
}

func TestHandleTokenReceivedCreditsBalance(t *testing.T) {
	store := knownUserStore()

	var balanceUser, balanceToken, balanceAmount string
	store.AddBalanceFunc = func(ctx context.Context, userID, token, amount, symbol string, decimals int) error {
		balanceUser, balanceToken, balanceAmount = userID, token, amount
		return nil
	}
	var activity *dao.TradingActivityDao
	store.InsertActivityFunc = func(ctx context.Context, a *dao.TradingActivityDao) error {
		activity = a
		return nil
	}

	notifier := &MockNotifier{}
	handlers := newTestHandlers(store, notifier)

	log := eventLog(t, ethereum.EventTokenReceived, nil, testWallet, testToken, big.NewInt(1_000_000))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventTokenReceived, log))

	if balanceUser != "user-1" {
		t.Errorf("expected balance credited to user-1, got %s", balanceUser)
	}
	if balanceToken != "0x3333333333333333333333333333333333333333" {
		t.Errorf("expected lowercased token address, got %s", balanceToken)
	}
	if balanceAmount != "1000000" {
		t.Errorf("expected raw base-unit amount, got %s", balanceAmount)
	}

	require.NotNil(t, activity)
	if activity.TradeType != string(db.TradeTypeDeposit) {
		t.Errorf("expected DEPOSIT activity, got %s", activity.TradeType)
	}
	if len(notifier.Updates) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.Updates))
	}
}

func TestHandleReceivedUsesWrappedNativeRow(t *testing.T) {
	store := knownUserStore()

	var balanceToken, balanceSymbol string
	store.AddBalanceFunc = func(ctx context.Context, userID, token, amount, symbol string, decimals int) error {
		balanceToken, balanceSymbol = token, symbol
		return nil
	}

	handlers := newTestHandlers(store, &MockNotifier{})

	log := eventLog(t, ethereum.EventReceived, nil, testWallet, big.NewInt(5))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventReceived, log))

	if balanceToken != testWNative {
		t.Errorf("native deposit should land on the wrapped native row, got %s", balanceToken)
	}
	if balanceSymbol != "S" {
		t.Errorf("expected native symbol, got %s", balanceSymbol)
	}
}

func TestHandleUnknownUserReturnsError(t *testing.T) {
	balanceCalls := 0
	store := &MockStore{
		AddBalanceFunc: func(ctx context.Context, userID, token, amount, symbol string, decimals int) error {
			balanceCalls++
			return nil
		},
	}
	handlers := newTestHandlers(store, &MockNotifier{})

	log := eventLog(t, ethereum.EventTokenReceived, nil, testWallet, testToken, big.NewInt(1))
	err := handlers.Handle(context.Background(), ethereum.EventTokenReceived, log)

	require.Error(t, err)
	if balanceCalls != 0 {
		t.Error("unknown wallet must not touch balances")
	}
}

func TestHandleOrderExecutedAppliesSwap(t *testing.T) {
	store := knownUserStore()

	var applied *db.SwapExecution
	store.ApplySwapExecutionFunc = func(ctx context.Context, ex db.SwapExecution) error {
		applied = &ex
		return nil
	}
	var activity *dao.TradingActivityDao
	store.InsertActivityFunc = func(ctx context.Context, a *dao.TradingActivityDao) error {
		activity = a
		return nil
	}

	notifier := &MockNotifier{}
	handlers := newTestHandlers(store, notifier)

	orderID := [32]byte{0xab}
	log := eventLog(t, ethereum.EventLimitOrderExecuted, &orderID,
		testWallet, testTokenIn, testToken, big.NewInt(1_000_000), big.NewInt(2_000_000))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventLimitOrderExecuted, log))

	require.NotNil(t, applied)
	if applied.AmountIn != "1000000" || applied.AmountOut != "2000000" {
		t.Errorf("swap amounts mismatch: in=%s out=%s", applied.AmountIn, applied.AmountOut)
	}
	if applied.TokenIn != "0x2222222222222222222222222222222222222222" {
		t.Errorf("expected lowercased token in, got %s", applied.TokenIn)
	}

	require.NotNil(t, activity)
	if activity.Metadata["order_id"] != common.Hash(orderID).Hex() {
		t.Error("ledger row should reference the order id")
	}
	if len(notifier.Updates) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.Updates))
	}
}

func TestHandleOrderExecutedRedeliveryIsNoop(t *testing.T) {
	store := knownUserStore()
	store.MarkOrderExecutedFunc = func(ctx context.Context, orderID, txHash string, metadata map[string]interface{}) (bool, error) {
		// Already executed, the guard matches zero rows
		return false, nil
	}

	applies := 0
	store.ApplySwapExecutionFunc = func(ctx context.Context, ex db.SwapExecution) error {
		applies++
		return nil
	}
	activities := 0
	store.InsertActivityFunc = func(ctx context.Context, a *dao.TradingActivityDao) error {
		activities++
		return nil
	}

	notifier := &MockNotifier{}
	handlers := newTestHandlers(store, notifier)

	orderID := [32]byte{0xab}
	log := eventLog(t, ethereum.EventLimitOrderExecuted, &orderID,
		testWallet, testTokenIn, testToken, big.NewInt(1), big.NewInt(2))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventLimitOrderExecuted, log))

	if applies != 0 {
		t.Error("redelivered execution must not move balances")
	}
	if activities != 0 {
		t.Error("redelivered execution must not append to the ledger")
	}
	if len(notifier.Updates) != 0 {
		t.Error("redelivered execution must not notify")
	}
}

func TestHandleWalletSwapLeavesBalancesAlone(t *testing.T) {
	store := knownUserStore()

	applies := 0
	store.ApplySwapExecutionFunc = func(ctx context.Context, ex db.SwapExecution) error {
		applies++
		return nil
	}
	var activity *dao.TradingActivityDao
	store.InsertActivityFunc = func(ctx context.Context, a *dao.TradingActivityDao) error {
		activity = a
		return nil
	}

	handlers := newTestHandlers(store, &MockNotifier{})

	log := eventLog(t, ethereum.EventWalletSwapExecuted, nil,
		testWallet, testTokenIn, testToken, big.NewInt(10), big.NewInt(20))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventWalletSwapExecuted, log))

	if applies != 0 {
		t.Error("wallet swaps settle in the wallet, not in custody balances")
	}
	require.NotNil(t, activity)
	require.NotNil(t, activity.SwapSource)
	if *activity.SwapSource != string(db.SwapSourceWallet) {
		t.Errorf("expected WALLET swap source, got %s", *activity.SwapSource)
	}
}

func TestHandleOrderCreatedAttachesPendingStrategy(t *testing.T) {
	store := knownUserStore()
	store.FindPendingStrategyFunc = func(ctx context.Context, userID, tokenIn, tokenOut string) (*dao.PendingStrategyDao, error) {
		return &dao.PendingStrategyDao{ID: 7, Strategy: "take profit at 2x"}, nil
	}

	var usedID int64
	var usedOrderID string
	store.MarkStrategyUsedFunc = func(ctx context.Context, id int64, orderID string) error {
		usedID, usedOrderID = id, orderID
		return nil
	}
	var inserted *dao.LimitOrderDao
	store.InsertLimitOrderFunc = func(ctx context.Context, order *dao.LimitOrderDao) error {
		inserted = order
		return nil
	}

	handlers := newTestHandlers(store, &MockNotifier{})

	orderID := [32]byte{0xcd}
	log := eventLog(t, ethereum.EventLimitOrderCreated, &orderID,
		testWallet, testTokenIn, testToken, big.NewInt(100), big.NewInt(90))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventLimitOrderCreated, log))

	require.NotNil(t, inserted)
	if inserted.Status != string(db.OrderStatusActive) {
		t.Errorf("expected active order, got %s", inserted.Status)
	}
	if inserted.Metadata["strategy"] != "take profit at 2x" {
		t.Error("pending strategy should be attached to the order metadata")
	}
	if usedID != 7 || usedOrderID != common.Hash(orderID).Hex() {
		t.Errorf("strategy 7 should be consumed by order %s, got %d/%s",
			common.Hash(orderID).Hex(), usedID, usedOrderID)
	}
}

func TestHandleWithdrawnDebitsBalance(t *testing.T) {
	store := knownUserStore()

	var debitToken, debitAmount string
	store.SubtractBalanceFunc = func(ctx context.Context, userID, token, amount string) error {
		debitToken, debitAmount = token, amount
		return nil
	}
	var activity *dao.TradingActivityDao
	store.InsertActivityFunc = func(ctx context.Context, a *dao.TradingActivityDao) error {
		activity = a
		return nil
	}

	handlers := newTestHandlers(store, &MockNotifier{})

	log := eventLog(t, ethereum.EventWithdrawn, nil, testWallet, testToken, big.NewInt(300))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventWithdrawn, log))

	if debitToken != "0x3333333333333333333333333333333333333333" || debitAmount != "300" {
		t.Errorf("unexpected debit %s/%s", debitToken, debitAmount)
	}
	require.NotNil(t, activity)
	if activity.TradeType != string(db.TradeTypeWithdrawal) {
		t.Errorf("expected WITHDRAWAL activity, got %s", activity.TradeType)
	}
}

func TestHandleWithdrawnZeroAddressIsNative(t *testing.T) {
	store := knownUserStore()

	var debitToken string
	store.SubtractBalanceFunc = func(ctx context.Context, userID, token, amount string) error {
		debitToken = token
		return nil
	}

	handlers := newTestHandlers(store, &MockNotifier{})

	log := eventLog(t, ethereum.EventWithdrawn, nil, testWallet, common.Address{}, big.NewInt(1))
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventWithdrawn, log))

	if debitToken != testWNative {
		t.Errorf("zero-address withdrawal should debit the wrapped native row, got %s", debitToken)
	}
}

func TestHandleOrderCancelledRedeliveryIsNoop(t *testing.T) {
	store := knownUserStore()
	store.MarkOrderCancelledFunc = func(ctx context.Context, orderID string) (bool, error) {
		return false, nil
	}

	notifier := &MockNotifier{}
	handlers := newTestHandlers(store, notifier)

	orderID := [32]byte{0xef}
	log := eventLog(t, ethereum.EventLimitOrderCancelled, &orderID)
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventLimitOrderCancelled, log))

	if len(notifier.Updates) != 0 {
		t.Error("redelivered cancellation must not notify")
	}
}

func TestHandleOrderCancelledNotifiesOwner(t *testing.T) {
	store := knownUserStore()
	store.GetOrderByOrderIDFunc = func(ctx context.Context, orderID string) (*dao.LimitOrderDao, error) {
		return &dao.LimitOrderDao{OrderID: orderID, UserID: "user-1"}, nil
	}

	notifier := &MockNotifier{}
	handlers := newTestHandlers(store, notifier)

	orderID := [32]byte{0xef}
	log := eventLog(t, ethereum.EventLimitOrderCancelled, &orderID)
	require.NoError(t, handlers.Handle(context.Background(), ethereum.EventLimitOrderCancelled, log))

	if len(notifier.Updates) != 1 || notifier.Updates[0].UserID != "user-1" {
		t.Errorf("expected cancellation notice to user-1, got %v", notifier.Updates)
	}
}

func TestExecutionPrice(t *testing.T) {
	// 1 USDC (6 decimals) in, 0.5 of an 18-decimal token out: price 0.5
	in := big.NewInt(1_000_000)
	out, _ := new(big.Int).SetString("500000000000000000", 10)
	if got := executionPrice(in, 6, out, 18); got != "0.5" {
		t.Errorf("expected price 0.5, got %s", got)
	}

	if got := executionPrice(big.NewInt(0), 6, out, 18); got != "0" {
		t.Errorf("zero input amount must price as 0, got %s", got)
	}
}
