package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/finbound/defi-assistant/pkg/db/dao"
)

// ErrUserNotFound is returned when no user row matches a wallet address
var ErrUserNotFound = errors.New("user not found")

// Store provides database operations for the assistant daemons
type Store struct {
	db *bun.DB
}

// NewStore creates a new database store
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a user row. The web application normally owns user
// creation; this exists for provisioning and tests.
func (s *Store) CreateUser(ctx context.Context, user *dao.UserDao) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByWallet resolves a wallet address to its user row. Addresses are
// compared case-insensitively since logs carry checksummed casing.
func (s *Store) GetUserByWallet(ctx context.Context, address string) (*dao.UserDao, error) {
	user := new(dao.UserDao)
	err := s.db.NewSelect().
		Model(user).
		Where("LOWER(wallet_address) = ?", strings.ToLower(address)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// AddBalance credits a cached custody balance in a single atomic upsert
func (s *Store) AddBalance(ctx context.Context, userID, token, amount, symbol string, decimals int) error {
	return addBalance(ctx, s.db, userID, token, amount, symbol, decimals)
}

func addBalance(ctx context.Context, idb bun.IDB, userID, token, amount, symbol string, decimals int) error {
	bal := &dao.ContractBalanceDao{
		UserID:        userID,
		TokenAddress:  strings.ToLower(token),
		Balance:       amount,
		TokenSymbol:   symbol,
		TokenDecimals: decimals,
		LastUpdatedAt: time.Now(),
	}
	_, err := idb.NewInsert().
		Model(bal).
		On("CONFLICT (user_id, token_address) DO UPDATE").
		Set("balance = cb.balance + EXCLUDED.balance").
		Set("last_updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// SubtractBalance debits a cached custody balance atomically and removes the
// row if it nets to zero
func (s *Store) SubtractBalance(ctx context.Context, userID, token, amount string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return subtractBalance(ctx, tx, userID, token, amount)
	})
}

func subtractBalance(ctx context.Context, idb bun.IDB, userID, token, amount string) error {
	token = strings.ToLower(token)

	res, err := idb.NewUpdate().
		TableExpr("contract_balances").
		Set("balance = balance - ?::numeric", amount).
		Set("last_updated_at = NOW()").
		Where("user_id = ? AND token_address = ?", userID, token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("no cached balance for user %s token %s", userID, token)
	}

	// A fully spent balance is removed, not kept at zero
	_, err = idb.NewDelete().
		Model((*dao.ContractBalanceDao)(nil)).
		Where("user_id = ? AND token_address = ? AND balance <= 0", userID, token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune zero balance: %w", err)
	}
	return nil
}

// GetBalance fetches one cached balance row, nil when absent
func (s *Store) GetBalance(ctx context.Context, userID, token string) (*dao.ContractBalanceDao, error) {
	bal := new(dao.ContractBalanceDao)
	err := s.db.NewSelect().
		Model(bal).
		Where("user_id = ? AND token_address = ?", userID, strings.ToLower(token)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return bal, nil
}

// InsertActivity appends a row to the trading activity ledger
func (s *Store) InsertActivity(ctx context.Context, activity *dao.TradingActivityDao) error {
	_, err := s.db.NewInsert().Model(activity).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert trading activity: %w", err)
	}
	return nil
}

// InsertLimitOrder mirrors a newly created on-chain order
func (s *Store) InsertLimitOrder(ctx context.Context, order *dao.LimitOrderDao) error {
	_, err := s.db.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert limit order: %w", err)
	}
	return nil
}

// GetOrderByOrderID fetches a mirrored order by its on-chain id, nil when absent
func (s *Store) GetOrderByOrderID(ctx context.Context, orderID string) (*dao.LimitOrderDao, error) {
	order := new(dao.LimitOrderDao)
	err := s.db.NewSelect().
		Model(order).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get limit order: %w", err)
	}
	return order, nil
}

// MarkOrderExecuted transitions an order from active to executed, merging
// execution details into its metadata. The WHERE status = 'active' guard is
// the duplicate-delivery check: a second delivery of the same event matches
// zero rows and returns false.
func (s *Store) MarkOrderExecuted(ctx context.Context, orderID, txHash string, metadata map[string]interface{}) (bool, error) {
	q := s.db.NewUpdate().
		TableExpr("limit_orders").
		Set("status = ?", OrderStatusExecuted).
		Set("execution_tx_hash = ?", txHash).
		Set("executed_at = NOW()").
		Where("order_id = ? AND status = ?", orderID, OrderStatusActive)

	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return false, fmt.Errorf("failed to encode order metadata: %w", err)
		}
		q = q.Set("metadata = COALESCE(metadata, '{}'::jsonb) || ?::jsonb", string(encoded))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark order executed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// MarkOrderCancelled transitions an order from active to cancelled; false
// means the order was not active (already processed or unknown)
func (s *Store) MarkOrderCancelled(ctx context.Context, orderID string) (bool, error) {
	res, err := s.db.NewUpdate().
		TableExpr("limit_orders").
		Set("status = ?", OrderStatusCancelled).
		Where("order_id = ? AND status = ?", orderID, OrderStatusActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark order cancelled: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// FindPendingStrategy looks up the newest unconsumed strategy for a user and
// token pair, nil when none matches. Pairs are matched case-insensitively.
func (s *Store) FindPendingStrategy(ctx context.Context, userID, tokenIn, tokenOut string) (*dao.PendingStrategyDao, error) {
	strategy := new(dao.PendingStrategyDao)
	err := s.db.NewSelect().
		Model(strategy).
		Where("user_id = ?", userID).
		Where("LOWER(token_in) = ?", strings.ToLower(tokenIn)).
		Where("LOWER(token_out) = ?", strings.ToLower(tokenOut)).
		Where("status = ?", StrategyStatusPending).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending strategy: %w", err)
	}
	return strategy, nil
}

// MarkStrategyUsed consumes a pending strategy, linking it to the order that
// absorbed it
func (s *Store) MarkStrategyUsed(ctx context.Context, id int64, orderID string) error {
	_, err := s.db.NewUpdate().
		TableExpr("pending_strategies").
		Set("status = ?", StrategyStatusUsed).
		Set("order_id = ?", orderID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark strategy used: %w", err)
	}
	return nil
}

// InsertPendingStrategy stores a strategy awaiting its on-chain order
func (s *Store) InsertPendingStrategy(ctx context.Context, strategy *dao.PendingStrategyDao) error {
	_, err := s.db.NewInsert().Model(strategy).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert pending strategy: %w", err)
	}
	return nil
}

// SwapExecution describes the balance transition of a completed swap
type SwapExecution struct {
	UserID           string
	TokenIn          string
	TokenOut         string
	AmountIn         string
	AmountOut        string
	TokenOutSymbol   string
	TokenOutDecimals int
}

// ApplySwapExecution moves a swap's input and output across the cached
// balances in one transaction: debit tokenIn (pruning a zeroed row), credit
// tokenOut.
func (s *Store) ApplySwapExecution(ctx context.Context, ex SwapExecution) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := subtractBalance(ctx, tx, ex.UserID, ex.TokenIn, ex.AmountIn); err != nil {
			return err
		}
		return addBalance(ctx, tx, ex.UserID, ex.TokenOut, ex.AmountOut, ex.TokenOutSymbol, ex.TokenOutDecimals)
	})
}
