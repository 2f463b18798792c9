package reconciler

import (
	"context"
	"fmt"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/internal/metrics"
	"github.com/finbound/defi-assistant/pkg/config"
	"github.com/finbound/defi-assistant/pkg/ethereum"
)

// watchedEvents are the custody contract events mirrored into the database
var watchedEvents = []string{
	ethereum.EventReceived,
	ethereum.EventTokenReceived,
	ethereum.EventWalletSwapExecuted,
	ethereum.EventSwapExecuted,
	ethereum.EventLimitOrderCreated,
	ethereum.EventLimitOrderExecuted,
	ethereum.EventLimitOrderCancelled,
	ethereum.EventWithdrawn,
}

// Listener maintains one log subscription per custody event and feeds every
// log to the handlers. Recovery is coarse: an error on any subscription tears
// down all of them and resubscribes everything after a fixed delay.
type Listener struct {
	backend  ethereum.Backend
	custody  common.Address
	config   *config.ListenerConfig
	handlers *Handlers
	logger   *zap.Logger
}

// NewListener creates an event reconciliation listener
func NewListener(backend ethereum.Backend, custody common.Address, cfg *config.ListenerConfig, handlers *Handlers, logger *zap.Logger) *Listener {
	return &Listener{
		backend:  backend,
		custody:  custody,
		config:   cfg,
		handlers: handlers,
		logger:   logger,
	}
}

// Run watches custody events until ctx is cancelled, restarting all
// subscriptions after any watch error
func (l *Listener) Run(ctx context.Context) {
	l.logger.Info("Starting event listener",
		zap.String("custody_contract", l.custody.Hex()),
		zap.Int("subscriptions", len(watchedEvents)))

	for {
		err := l.watchAll(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Event listener stopped")
			return
		}

		metrics.ListenerRestarts.Inc()
		l.logger.Error("Event watch failed, restarting all subscriptions",
			zap.Error(err),
			zap.Duration("delay", l.config.RestartDelay))

		select {
		case <-ctx.Done():
			l.logger.Info("Event listener stopped")
			return
		case <-time.After(l.config.RestartDelay):
		}
	}
}

// watchAll runs one subscription per event and blocks until the first of
// them fails
func (l *Listener) watchAll(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(watchedEvents))
	for _, event := range watchedEvents {
		go l.watch(watchCtx, event, errCh)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (l *Listener) watch(ctx context.Context, event string, errCh chan<- error) {
	query := geth.FilterQuery{
		Addresses: []common.Address{l.custody},
		Topics:    [][]common.Hash{{ethereum.CustodyABI.Events[event].ID}},
	}

	logs := make(chan types.Log, 64)
	sub, err := l.backend.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		errCh <- fmt.Errorf("failed to subscribe to %s: %w", event, err)
		return
	}
	defer sub.Unsubscribe()

	l.logger.Info("Watching custody event", zap.String("event", event))

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			errCh <- fmt.Errorf("%s subscription failed: %w", event, err)
			return
		case log := <-logs:
			// Per-log errors stay local to this log; the subscription
			// keeps draining.
			if err := l.handlers.Handle(ctx, event, log); err != nil {
				metrics.EventErrors.WithLabelValues(event).Inc()
				l.logger.Error("Failed to process event log",
					zap.String("event", event),
					zap.String("tx_hash", log.TxHash.Hex()),
					zap.Error(err))
				continue
			}
			metrics.EventsProcessed.WithLabelValues(event).Inc()
		}
	}
}
