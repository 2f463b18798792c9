package txmgr

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/pkg/ethereum"
)

// NonceSource hands out strictly increasing nonces for a single hot wallet.
// The counter is process-local: it is synced from the chain's pending
// transaction count on first use and then incremented under the lock on every
// allocation. Running two replicas against the same signing key will collide;
// the service must be deployed single-replica.
type NonceSource struct {
	backend ethereum.Backend
	account common.Address
	logger  *zap.Logger

	mu          sync.Mutex
	next        uint64
	initialized bool
}

// NewNonceSource creates a nonce allocator for the given account
func NewNonceSource(backend ethereum.Backend, account common.Address, logger *zap.Logger) *NonceSource {
	return &NonceSource{
		backend: backend,
		account: account,
		logger:  logger,
	}
}

// Next returns the next nonce and advances the counter. On first call the
// counter is initialized from PendingNonceAt; if that read fails, nothing is
// cached and the next call retries it.
func (n *NonceSource) Next(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.initialized {
		count, err := n.backend.PendingNonceAt(ctx, n.account)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch transaction count: %w", err)
		}
		n.next = count
		n.initialized = true
		n.logger.Info("Nonce counter initialized from chain",
			zap.String("account", n.account.Hex()),
			zap.Uint64("nonce", count))
	}

	nonce := n.next
	n.next++
	return nonce, nil
}

// Reset discards the cached counter so the next allocation re-syncs from the
// chain. Used after a send failure that indicates the local counter has
// drifted from the node's view.
func (n *NonceSource) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initialized = false
	n.logger.Warn("Nonce counter reset, will re-sync from chain",
		zap.String("account", n.account.Hex()))
}
