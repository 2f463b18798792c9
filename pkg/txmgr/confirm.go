package txmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/internal/metrics"
	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/ethereum"
)

// Tracker watches submitted transactions until they are final. Finality is
// two receipts: one at inclusion and one after ConfirmationBlocks more blocks
// have been mined, because an included transaction can still be dropped by a
// reorg before reaching that depth.
type Tracker struct {
	backend ethereum.Backend
	config  *config.EthereumConfig
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[common.Hash]struct{}
}

// NewTracker creates a confirmation tracker
func NewTracker(backend ethereum.Backend, cfg *config.EthereumConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		backend:  backend,
		config:   cfg,
		logger:   logger,
		inFlight: make(map[common.Hash]struct{}),
	}
}

// WaitMined polls until the transaction has an inclusion receipt. It has no
// timeout of its own; bound it through ctx.
func (t *Tracker) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, geth.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.config.ReceiptPollDelay):
		}
	}
}

// Confirm waits for the transaction to be mined and then to survive
// ConfirmationBlocks additional blocks. A revert at inclusion returns
// *RevertError without waiting further; a transaction that disappears or
// fails between inclusion and the confirmation depth returns
// *ConfirmationError.
func (t *Tracker) Confirm(ctx context.Context, hash common.Hash) error {
	receipt, err := t.WaitMined(ctx, hash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.TransactionsFailed.WithLabelValues("reverted").Inc()
		return &RevertError{Hash: hash}
	}

	inclusionBlock := receipt.BlockNumber.Uint64()
	target := inclusionBlock + t.config.ConfirmationBlocks
	for {
		header, err := t.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch head block: %w", err)
		}
		if header.Number.Uint64() >= target {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.config.ReceiptPollDelay):
		}
	}

	// Re-fetch at depth; the receipt can vanish or flip if the inclusion
	// block was reorged out.
	final, err := t.backend.TransactionReceipt(ctx, hash)
	if err != nil || final.Status != types.ReceiptStatusSuccessful {
		metrics.TransactionsFailed.WithLabelValues("confirmation").Inc()
		return &ConfirmationError{Hash: hash}
	}

	t.logger.Info("Transaction confirmed",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block", inclusionBlock),
		zap.Uint64("confirmations", t.config.ConfirmationBlocks))
	metrics.TransactionsConfirmed.Inc()
	return nil
}

// PollStatus watches an externally signed transaction with a bounded number
// of receipt polls. It returns true when the transaction succeeds, false with
// an error when it reverts or the attempt budget runs out. Concurrent polls
// for the same hash are rejected so two API calls cannot double-track one
// transaction.
func (t *Tracker) PollStatus(ctx context.Context, hash common.Hash) (bool, error) {
	if !t.beginPoll(hash) {
		return false, fmt.Errorf("transaction %s is already being tracked", hash.Hex())
	}
	defer t.endPoll(hash)

	for attempt := 0; attempt < t.config.StatusPollAttempts; attempt++ {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return true, nil
			}
			return false, &RevertError{Hash: hash}
		}
		if !errors.Is(err, geth.NotFound) {
			return false, fmt.Errorf("failed to fetch receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.config.StatusPollInterval):
		}
	}

	return false, fmt.Errorf("transaction %s not mined after %d attempts", hash.Hex(), t.config.StatusPollAttempts)
}

func (t *Tracker) beginPoll(hash common.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inFlight[hash]; ok {
		return false
	}
	t.inFlight[hash] = struct{}{}
	return true
}

func (t *Tracker) endPoll(hash common.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, hash)
}
