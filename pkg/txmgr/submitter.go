package txmgr

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/internal/metrics"
	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/ethereum"
)

// Gas ceilings per custody call, sized from observed mainnet usage
const (
	GasLimitSwap        = 1_800_000
	GasLimitWithdraw    = 500_000
	GasLimitCreateOrder = 500_000
	GasLimitCancelOrder = 300_000
)

// Intent is a fully specified custody contract call awaiting submission.
// Construct one with the helpers below; it is consumed exactly once.
type Intent struct {
	Method   string
	Args     []interface{}
	GasLimit uint64
}

// SwapIntent builds an executeSwap call spending a user's custody balance
func SwapIntent(user, tokenIn, tokenOut common.Address, amountIn *big.Int, target common.Address, data []byte) Intent {
	return Intent{
		Method:   "executeSwap",
		Args:     []interface{}{user, tokenIn, tokenOut, amountIn, target, data},
		GasLimit: GasLimitSwap,
	}
}

// WalletSwapIntent builds an executeWalletSwap call funded from the user's wallet
func WalletSwapIntent(user, tokenIn, tokenOut common.Address, amountIn, amountOutMin *big.Int, target common.Address, data []byte) Intent {
	return Intent{
		Method:   "executeWalletSwap",
		Args:     []interface{}{user, tokenIn, tokenOut, amountIn, amountOutMin, target, data},
		GasLimit: GasLimitSwap,
	}
}

// WithdrawIntent builds a withdraw call paying a balance out to the user
func WithdrawIntent(user, token common.Address, amount *big.Int) Intent {
	return Intent{
		Method:   "withdraw",
		Args:     []interface{}{user, token, amount},
		GasLimit: GasLimitWithdraw,
	}
}

// CreateLimitOrderIntent builds a createLimitOrder call
func CreateLimitOrderIntent(user, tokenIn, tokenOut common.Address, amountIn, amountOutMin *big.Int) Intent {
	return Intent{
		Method:   "createLimitOrder",
		Args:     []interface{}{user, tokenIn, tokenOut, amountIn, amountOutMin},
		GasLimit: GasLimitCreateOrder,
	}
}

// CancelLimitOrderIntent builds a cancelLimitOrder call
func CancelLimitOrderIntent(orderID [32]byte) Intent {
	return Intent{
		Method:   "cancelLimitOrder",
		Args:     []interface{}{orderID},
		GasLimit: GasLimitCancelOrder,
	}
}

// ExecuteLimitOrderIntent builds an executeLimitOrder call carrying the
// aggregator's routing target and calldata
func ExecuteLimitOrderIntent(orderID [32]byte, target common.Address, data []byte) Intent {
	return Intent{
		Method:   "executeLimitOrder",
		Args:     []interface{}{orderID, target, data},
		GasLimit: GasLimitSwap,
	}
}

// Signer signs a custody transaction with the hot wallet key. Implemented by
// *ethereum.Client and faked in tests.
type Signer interface {
	SignCustodyTx(nonce uint64, gasLimit uint64, gasPrice *big.Int, data []byte) (*types.Transaction, error)
}

// Submitter encodes intents and sends them through the chain backend with the
// allocated nonce and a bounded retry on nonce-replacement conflicts.
type Submitter struct {
	backend ethereum.Backend
	signer  Signer
	nonces  *NonceSource
	config  *config.EthereumConfig
	logger  *zap.Logger
}

// NewSubmitter creates a transaction submitter
func NewSubmitter(backend ethereum.Backend, signer Signer, nonces *NonceSource, cfg *config.EthereumConfig, logger *zap.Logger) *Submitter {
	return &Submitter{
		backend: backend,
		signer:  signer,
		nonces:  nonces,
		config:  cfg,
		logger:  logger,
	}
}

// Submit signs and sends the intent, returning the transaction hash once the
// node accepts it. Acceptance is not confirmation; callers follow up with the
// confirmation tracker.
//
// A send rejected as "replacement transaction underpriced" is retried up to
// MaxRetries times with a fixed delay, escalating the gas price 10% per
// retry. Any other send error propagates immediately.
func (s *Submitter) Submit(ctx context.Context, intent Intent) (common.Hash, error) {
	data, err := ethereum.CustodyABI.Pack(intent.Method, intent.Args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode %s call: %w", intent.Method, err)
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	nonce, err := s.nonces.Next(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// +10% per retry so the resend outbids whatever is pending at
			// this nonce
			gasPrice = new(big.Int).Div(new(big.Int).Mul(gasPrice, big.NewInt(110)), big.NewInt(100))
			metrics.TransactionRetries.WithLabelValues(intent.Method).Inc()

			select {
			case <-ctx.Done():
				return common.Hash{}, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}

		signed, err := s.signer.SignCustodyTx(nonce, intent.GasLimit, gasPrice, data)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to sign %s transaction: %w", intent.Method, err)
		}

		if err := s.backend.SendTransaction(ctx, signed); err != nil {
			if ClassifySendError(err) != SendRetryable {
				return common.Hash{}, fmt.Errorf("failed to send %s transaction: %w", intent.Method, err)
			}
			lastErr = err
			s.logger.Warn("Transaction underpriced, retrying with higher gas price",
				zap.String("method", intent.Method),
				zap.Uint64("nonce", nonce),
				zap.Int("attempt", attempt+1))
			continue
		}

		s.logger.Info("Transaction submitted",
			zap.String("method", intent.Method),
			zap.String("tx_hash", signed.Hash().Hex()),
			zap.Uint64("nonce", nonce),
			zap.Uint64("gas_limit", intent.GasLimit))
		metrics.TransactionsSubmitted.WithLabelValues(intent.Method).Inc()
		return signed.Hash(), nil
	}

	return common.Hash{}, &RetriesExhaustedError{Retries: s.config.MaxRetries, Last: lastErr}
}
