package orders

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/internal/metrics"
	"github.com/finbound/defi-assistant/pkg/aggregator"
	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/ethereum"
	"github.com/finbound/defi-assistant/pkg/txmgr"
)

// OrderBook reads the on-chain active order set
type OrderBook interface {
	GetTotalActiveOrders(ctx context.Context) (*big.Int, error)
	GetActiveOrders(ctx context.Context, offset, limit *big.Int) ([]ethereum.OrderDetails, error)
}

// QuoteProvider prices a swap through the aggregator
type QuoteProvider interface {
	GetSwapQuote(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.SwapQuote, error)
}

// TxSubmitter sends custody transactions
type TxSubmitter interface {
	Submit(ctx context.Context, intent txmgr.Intent) (common.Hash, error)
}

// ReceiptWaiter waits for a transaction's inclusion receipt
type ReceiptWaiter interface {
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// TokenInfoProvider resolves ERC-20 metadata, memoized per process
type TokenInfoProvider interface {
	Info(ctx context.Context, token common.Address) ethereum.TokenInfo
}

// Poller walks the on-chain active limit orders on a fixed interval and
// executes every order the aggregator can currently fill at or above its
// minimum output. Order state transitions are observed by the event listener,
// not written here.
type Poller struct {
	config    *config.ExecutorConfig
	orderBook OrderBook
	quotes    QuoteProvider
	submitter TxSubmitter
	tracker   ReceiptWaiter
	tokens    TokenInfoProvider
	custody   common.Address
	logger    *zap.Logger

	running atomic.Bool
}

// NewPoller creates a limit order poller
func NewPoller(
	cfg *config.ExecutorConfig,
	orderBook OrderBook,
	quotes QuoteProvider,
	submitter TxSubmitter,
	tracker ReceiptWaiter,
	tokens TokenInfoProvider,
	custody common.Address,
	logger *zap.Logger,
) *Poller {
	return &Poller{
		config:    cfg,
		orderBook: orderBook,
		quotes:    quotes,
		submitter: submitter,
		tracker:   tracker,
		tokens:    tokens,
		custody:   custody,
		logger:    logger,
	}
}

// Run ticks until ctx is cancelled. The first tick fires immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Starting limit order poller",
		zap.Duration("interval", p.config.PollInterval),
		zap.Int64("batch_size", p.config.BatchSize))

	p.Tick(ctx)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Limit order poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one pass over the active orders. A tick that arrives while the
// previous one is still executing is skipped; a tick never propagates an
// error to the next one.
func (p *Poller) Tick(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Debug("Previous tick still running, skipping")
		return
	}
	defer p.running.Store(false)

	if err := p.checkOrders(ctx); err != nil {
		p.logger.Error("Order check failed", zap.Error(err))
	}
}

func (p *Poller) checkOrders(ctx context.Context) error {
	total, err := p.orderBook.GetTotalActiveOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to read active order count: %w", err)
	}

	count := total.Int64()
	metrics.ActiveOrders.Set(float64(count))
	if count == 0 {
		return nil
	}

	p.logger.Info("Checking active limit orders", zap.Int64("total", count))

	for offset := int64(0); offset < count; offset += p.config.BatchSize {
		orders, err := p.orderBook.GetActiveOrders(ctx, big.NewInt(offset), big.NewInt(p.config.BatchSize))
		if err != nil {
			return fmt.Errorf("failed to read orders at offset %d: %w", offset, err)
		}

		for i := range orders {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			order := &orders[i]
			if err := p.processOrder(ctx, order); err != nil {
				metrics.OrdersSkipped.WithLabelValues("error").Inc()
				p.logger.Error("Failed to process order",
					zap.String("order_id", common.Hash(order.OrderID).Hex()),
					zap.Error(err))
			}
		}
	}

	return nil
}

func (p *Poller) processOrder(ctx context.Context, order *ethereum.OrderDetails) error {
	orderID := common.Hash(order.OrderID).Hex()
	inInfo := p.tokens.Info(ctx, order.TokenIn)
	outInfo := p.tokens.Info(ctx, order.TokenOut)

	quote, err := p.quotes.GetSwapQuote(ctx, aggregator.QuoteRequest{
		TokenIn:         order.TokenIn,
		TokenOut:        order.TokenOut,
		AmountIn:        order.AmountIn,
		UserAddr:        p.custody,
		SlippagePercent: p.config.SlippagePercent,
	})
	if err != nil {
		return fmt.Errorf("quote failed: %w", err)
	}

	if quote.ExpectedOutput.Cmp(order.AmountOutMin) < 0 {
		metrics.OrdersSkipped.WithLabelValues("unfavorable").Inc()
		p.logger.Debug("Quote below order minimum",
			zap.String("order_id", orderID),
			zap.String("expected_out", humanAmount(quote.ExpectedOutput, outInfo.Decimals)),
			zap.String("min_out", humanAmount(order.AmountOutMin, outInfo.Decimals)))
		return nil
	}

	p.logger.Info("Executing limit order",
		zap.String("order_id", orderID),
		zap.String("user", order.User.Hex()),
		zap.String("amount_in", humanAmount(order.AmountIn, inInfo.Decimals)+" "+inInfo.Symbol),
		zap.String("expected_out", humanAmount(quote.ExpectedOutput, outInfo.Decimals)+" "+outInfo.Symbol))

	hash, err := p.submitter.Submit(ctx, txmgr.ExecuteLimitOrderIntent(order.OrderID, quote.To, quote.Data))
	if err != nil {
		return fmt.Errorf("execution submit failed: %w", err)
	}

	receipt, err := p.tracker.WaitMined(ctx, hash)
	if err != nil {
		return fmt.Errorf("execution receipt wait failed: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return &txmgr.RevertError{Hash: hash}
	}

	metrics.OrdersExecuted.Inc()
	p.logger.Info("Limit order executed",
		zap.String("order_id", orderID),
		zap.String("tx_hash", hash.Hex()))
	return nil
}

func humanAmount(amount *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
