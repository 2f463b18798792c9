package reconciler

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/db"
	"github.com/finbound/defi-assistant/pkg/db/dao"
	"github.com/finbound/defi-assistant/pkg/ethereum"
	"github.com/finbound/defi-assistant/pkg/notify"
)

// Store is the database surface the handlers write through
type Store interface {
	GetUserByWallet(ctx context.Context, address string) (*dao.UserDao, error)
	AddBalance(ctx context.Context, userID, token, amount, symbol string, decimals int) error
	SubtractBalance(ctx context.Context, userID, token, amount string) error
	InsertActivity(ctx context.Context, activity *dao.TradingActivityDao) error
	InsertLimitOrder(ctx context.Context, order *dao.LimitOrderDao) error
	GetOrderByOrderID(ctx context.Context, orderID string) (*dao.LimitOrderDao, error)
	MarkOrderExecuted(ctx context.Context, orderID, txHash string, metadata map[string]interface{}) (bool, error)
	MarkOrderCancelled(ctx context.Context, orderID string) (bool, error)
	FindPendingStrategy(ctx context.Context, userID, tokenIn, tokenOut string) (*dao.PendingStrategyDao, error)
	MarkStrategyUsed(ctx context.Context, id int64, orderID string) error
	ApplySwapExecution(ctx context.Context, ex db.SwapExecution) error
}

// TokenInfoProvider resolves ERC-20 metadata, memoized per process
type TokenInfoProvider interface {
	Info(ctx context.Context, token common.Address) ethereum.TokenInfo
}

// Handlers mirrors custody contract events into the database. Each handler
// resolves the on-chain address to a user, applies the balance or order
// transition, appends a ledger row and fires a best-effort notification.
type Handlers struct {
	store    Store
	tokens   TokenInfoProvider
	notifier notify.Notifier
	ethCfg   *config.EthereumConfig
	logger   *zap.Logger
}

// NewHandlers creates the event handler set
func NewHandlers(store Store, tokens TokenInfoProvider, notifier notify.Notifier, ethCfg *config.EthereumConfig, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		ethCfg:   ethCfg,
		logger:   logger,
	}
}

// Handle dispatches one custody log to its event handler
func (h *Handlers) Handle(ctx context.Context, event string, log types.Log) error {
	switch event {
	case ethereum.EventReceived:
		return h.handleReceived(ctx, log)
	case ethereum.EventTokenReceived:
		return h.handleTokenReceived(ctx, log)
	case ethereum.EventWalletSwapExecuted:
		return h.handleSwapExecuted(ctx, event, log, db.SwapSourceWallet)
	case ethereum.EventSwapExecuted:
		return h.handleSwapExecuted(ctx, event, log, db.SwapSourceContract)
	case ethereum.EventLimitOrderCreated:
		return h.handleOrderCreated(ctx, log)
	case ethereum.EventLimitOrderExecuted:
		return h.handleOrderExecuted(ctx, log)
	case ethereum.EventLimitOrderCancelled:
		return h.handleOrderCancelled(ctx, log)
	case ethereum.EventWithdrawn:
		return h.handleWithdrawn(ctx, log)
	default:
		return fmt.Errorf("no handler for event %s", event)
	}
}

// resolveUser maps a wallet address from a log to a user row. Unknown
// addresses are a normal condition (anyone can send to the contract); the
// caller skips the log.
func (h *Handlers) resolveUser(ctx context.Context, address common.Address) (*dao.UserDao, error) {
	user, err := h.store.GetUserByWallet(ctx, address.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", address.Hex(), err)
	}
	return user, nil
}

// nativeToken returns the balance-row token address and display metadata for
// native coin deposits, which carry no token address in the event
func (h *Handlers) nativeToken() (string, ethereum.TokenInfo) {
	return strings.ToLower(h.ethCfg.WrappedNative), ethereum.TokenInfo{
		Symbol:   h.ethCfg.NativeSymbol,
		Decimals: 18,
	}
}

func (h *Handlers) handleReceived(ctx context.Context, log types.Log) error {
	event, err := ethereum.ParseReceived(log)
	if err != nil {
		return err
	}

	user, err := h.resolveUser(ctx, event.User)
	if err != nil {
		return err
	}

	token, info := h.nativeToken()
	if err := h.store.AddBalance(ctx, user.ID, token, event.Amount.String(), info.Symbol, int(info.Decimals)); err != nil {
		return err
	}

	amount := event.Amount.String()
	if err := h.store.InsertActivity(ctx, &dao.TradingActivityDao{
		UserID:          user.ID,
		TransactionHash: log.TxHash.Hex(),
		TradeType:       string(db.TradeTypeDeposit),
		TokenIn:         &token,
		AmountIn:        &amount,
		Status:          string(db.ActivityStatusCompleted),
	}); err != nil {
		return err
	}

	h.notifier.StreamUpdate(ctx, user.ID,
		fmt.Sprintf("Your deposit of %s %s has been confirmed.", humanAmount(event.Amount, info.Decimals), info.Symbol))
	return nil
}

func (h *Handlers) handleTokenReceived(ctx context.Context, log types.Log) error {
	event, err := ethereum.ParseTokenReceived(log)
	if err != nil {
		return err
	}

	user, err := h.resolveUser(ctx, event.User)
	if err != nil {
		return err
	}

	info := h.tokens.Info(ctx, event.Token)
	token := strings.ToLower(event.Token.Hex())
	if err := h.store.AddBalance(ctx, user.ID, token, event.Amount.String(), info.Symbol, int(info.Decimals)); err != nil {
		return err
	}

	amount := event.Amount.String()
	if err := h.store.InsertActivity(ctx, &dao.TradingActivityDao{
		UserID:          user.ID,
		TransactionHash: log.TxHash.Hex(),
		TradeType:       string(db.TradeTypeDeposit),
		TokenIn:         &token,
		AmountIn:        &amount,
		Status:          string(db.ActivityStatusCompleted),
	}); err != nil {
		return err
	}

	h.notifier.StreamUpdate(ctx, user.ID,
		fmt.Sprintf("Your deposit of %s %s has been confirmed.", humanAmount(event.Amount, info.Decimals), info.Symbol))
	return nil
}

func (h *Handlers) handleSwapExecuted(ctx context.Context, name string, log types.Log, source db.SwapSource) error {
	event, err := ethereum.ParseSwapExecuted(name, log)
	if err != nil {
		return err
	}

	user, err := h.resolveUser(ctx, event.User)
	if err != nil {
		return err
	}

	inInfo := h.tokens.Info(ctx, event.TokenIn)
	outInfo := h.tokens.Info(ctx, event.TokenOut)

	// Wallet swaps settle in the user's own wallet; only custody swaps move
	// cached balances.
	if source == db.SwapSourceContract {
		if err := h.store.ApplySwapExecution(ctx, db.SwapExecution{
			UserID:           user.ID,
			TokenIn:          strings.ToLower(event.TokenIn.Hex()),
			TokenOut:         strings.ToLower(event.TokenOut.Hex()),
			AmountIn:         event.AmountIn.String(),
			AmountOut:        event.AmountOut.String(),
			TokenOutSymbol:   outInfo.Symbol,
			TokenOutDecimals: int(outInfo.Decimals),
		}); err != nil {
			return err
		}
	}

	tokenIn := strings.ToLower(event.TokenIn.Hex())
	tokenOut := strings.ToLower(event.TokenOut.Hex())
	amountIn := event.AmountIn.String()
	amountOut := event.AmountOut.String()
	swapSource := string(source)
	if err := h.store.InsertActivity(ctx, &dao.TradingActivityDao{
		UserID:          user.ID,
		TransactionHash: log.TxHash.Hex(),
		TradeType:       string(db.TradeTypeSwap),
		TokenIn:         &tokenIn,
		TokenOut:        &tokenOut,
		AmountIn:        &amountIn,
		AmountOut:       &amountOut,
		Status:          string(db.ActivityStatusCompleted),
		SwapSource:      &swapSource,
	}); err != nil {
		return err
	}

	h.notifier.StreamUpdate(ctx, user.ID,
		fmt.Sprintf("Swap completed: %s %s -> %s %s.",
			humanAmount(event.AmountIn, inInfo.Decimals), inInfo.Symbol,
			humanAmount(event.AmountOut, outInfo.Decimals), outInfo.Symbol))
	return nil
}

func (h *Handlers) handleOrderCreated(ctx context.Context, log types.Log) error {
	event, err := ethereum.ParseLimitOrderCreated(log)
	if err != nil {
		return err
	}

	user, err := h.resolveUser(ctx, event.User)
	if err != nil {
		return err
	}

	orderID := common.Hash(event.OrderID).Hex()
	tokenIn := strings.ToLower(event.TokenIn.Hex())
	tokenOut := strings.ToLower(event.TokenOut.Hex())

	metadata := map[string]interface{}{
		"creation_tx_hash": log.TxHash.Hex(),
	}

	// A strategy captured in chat before the order landed on-chain is
	// attached to the order and consumed.
	strategy, err := h.store.FindPendingStrategy(ctx, user.ID, tokenIn, tokenOut)
	if err != nil {
		return err
	}
	if strategy != nil {
		metadata["strategy"] = strategy.Strategy
		if err := h.store.MarkStrategyUsed(ctx, strategy.ID, orderID); err != nil {
			return err
		}
	}

	if err := h.store.InsertLimitOrder(ctx, &dao.LimitOrderDao{
		OrderID:      orderID,
		UserID:       user.ID,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     event.AmountIn.String(),
		AmountOutMin: event.AmountOutMin.String(),
		Status:       string(db.OrderStatusActive),
		Metadata:     metadata,
	}); err != nil {
		return err
	}

	inInfo := h.tokens.Info(ctx, event.TokenIn)
	outInfo := h.tokens.Info(ctx, event.TokenOut)
	h.notifier.StreamUpdate(ctx, user.ID,
		fmt.Sprintf("Limit order placed: sell %s %s for at least %s %s.",
			humanAmount(event.AmountIn, inInfo.Decimals), inInfo.Symbol,
			humanAmount(event.AmountOutMin, outInfo.Decimals), outInfo.Symbol))
	return nil
}

func (h *Handlers) handleOrderExecuted(ctx context.Context, log types.Log) error {
	event, err := ethereum.ParseLimitOrderExecuted(log)
	if err != nil {
		return err
	}

	user, err := h.resolveUser(ctx, event.User)
	if err != nil {
		return err
	}

	inInfo := h.tokens.Info(ctx, event.TokenIn)
	outInfo := h.tokens.Info(ctx, event.TokenOut)
	orderID := common.Hash(event.OrderID).Hex()

	metadata := map[string]interface{}{
		"amount_out":      event.AmountOut.String(),
		"execution_price": executionPrice(event.AmountIn, inInfo.Decimals, event.AmountOut, outInfo.Decimals),
	}

	// The active -> executed guard doubles as the duplicate-delivery check:
	// a redelivered event matches zero rows and must not touch balances.
	updated, err := h.store.MarkOrderExecuted(ctx, orderID, log.TxHash.Hex(), metadata)
	if err != nil {
		return err
	}
	if !updated {
		h.logger.Info("Order already processed, skipping",
			zap.String("order_id", orderID))
		return nil
	}

	if err := h.store.ApplySwapExecution(ctx, db.SwapExecution{
		UserID:           user.ID,
		TokenIn:          strings.ToLower(event.TokenIn.Hex()),
		TokenOut:         strings.ToLower(event.TokenOut.Hex()),
		AmountIn:         event.AmountIn.String(),
		AmountOut:        event.AmountOut.String(),
		TokenOutSymbol:   outInfo.Symbol,
		TokenOutDecimals: int(outInfo.Decimals),
	}); err != nil {
		return err
	}

	tokenIn := strings.ToLower(event.TokenIn.Hex())
	tokenOut := strings.ToLower(event.TokenOut.Hex())
	amountIn := event.AmountIn.String()
	amountOut := event.AmountOut.String()
	swapSource := string(db.SwapSourceContract)
	if err := h.store.InsertActivity(ctx, &dao.TradingActivityDao{
		UserID:          user.ID,
		TransactionHash: log.TxHash.Hex(),
		TradeType:       string(db.TradeTypeSwap),
		TokenIn:         &tokenIn,
		TokenOut:        &tokenOut,
		AmountIn:        &amountIn,
		AmountOut:       &amountOut,
		Status:          string(db.ActivityStatusCompleted),
		SwapSource:      &swapSource,
		Metadata:        map[string]interface{}{"order_id": orderID},
	}); err != nil {
		return err
	}

	h.notifier.StreamUpdate(ctx, user.ID,
		fmt.Sprintf("Limit order filled: received %s %s for %s %s.",
			humanAmount(event.AmountOut, outInfo.Decimals), outInfo.Symbol,
			humanAmount(event.AmountIn, inInfo.Decimals), inInfo.Symbol))
	return nil
}

func (h *Handlers) handleOrderCancelled(ctx context.Context, log types.Log) error {
	event, err := ethereum.ParseLimitOrderCancelled(log)
	if err != nil {
		return err
	}

	orderID := common.Hash(event.OrderID).Hex()
	updated, err := h.store.MarkOrderCancelled(ctx, orderID)
	if err != nil {
		return err
	}
	if !updated {
		h.logger.Info("Order already processed, skipping",
			zap.String("order_id", orderID))
		return nil
	}

	// The event carries only the order id; the mirror row supplies the user
	order, err := h.store.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if order != nil {
		h.notifier.StreamUpdate(ctx, order.UserID, "Your limit order has been cancelled.")
	}
	return nil
}

func (h *Handlers) handleWithdrawn(ctx context.Context, log types.Log) error {
	event, err := ethereum.ParseWithdrawn(log)
	if err != nil {
		return err
	}

	user, err := h.resolveUser(ctx, event.User)
	if err != nil {
		return err
	}

	var token string
	var info ethereum.TokenInfo
	if event.Token == (common.Address{}) {
		token, info = h.nativeToken()
	} else {
		token = strings.ToLower(event.Token.Hex())
		info = h.tokens.Info(ctx, event.Token)
	}

	if err := h.store.SubtractBalance(ctx, user.ID, token, event.Amount.String()); err != nil {
		return err
	}

	amount := event.Amount.String()
	if err := h.store.InsertActivity(ctx, &dao.TradingActivityDao{
		UserID:          user.ID,
		TransactionHash: log.TxHash.Hex(),
		TradeType:       string(db.TradeTypeWithdrawal),
		TokenOut:        &token,
		AmountOut:       &amount,
		Status:          string(db.ActivityStatusCompleted),
	}); err != nil {
		return err
	}

	h.notifier.StreamUpdate(ctx, user.ID,
		fmt.Sprintf("Your withdrawal of %s %s has been sent to your wallet.", humanAmount(event.Amount, info.Decimals), info.Symbol))
	return nil
}

func humanAmount(amount *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// executionPrice is the realized tokenOut per tokenIn, decimal-adjusted
func executionPrice(amountIn *big.Int, inDecimals uint8, amountOut *big.Int, outDecimals uint8) string {
	in := decimal.NewFromBigInt(amountIn, -int32(inDecimals))
	if in.IsZero() {
		return "0"
	}
	out := decimal.NewFromBigInt(amountOut, -int32(outDecimals))
	return out.DivRound(in, 18).String()
}
