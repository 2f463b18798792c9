// Package dao holds the data access objects mapping to the assistant's
// PostgreSQL tables.
package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// UserDao maps to the 'users' table. Rows are created by the web
// application's sign-in flow; the daemons only read them to resolve wallet
// addresses.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	WalletAddress string    `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// LimitOrderDao maps to the 'limit_orders' table, a queryable mirror of the
// on-chain order book. The contract is the source of truth; order_id is the
// on-chain bytes32 key.
type LimitOrderDao struct {
	bun.BaseModel   `bun:"table:limit_orders,alias:lo"`
	ID              int64                  `bun:"id,pk,autoincrement"`
	OrderID         string                 `bun:"order_id,unique,notnull,type:varchar(66)"`
	UserID          string                 `bun:"user_id,notnull,type:uuid"`
	TokenIn         string                 `bun:"token_in,notnull,type:varchar(42)"`
	TokenOut        string                 `bun:"token_out,notnull,type:varchar(42)"`
	AmountIn        string                 `bun:"amount_in,notnull,type:numeric(78,0)"`
	AmountOutMin    string                 `bun:"amount_out_min,notnull,type:numeric(78,0)"`
	Status          string                 `bun:"status,notnull,type:varchar(16),default:'active'"`
	ExecutionTxHash *string                `bun:"execution_tx_hash,type:varchar(66)"`
	ExecutedAt      *time.Time             `bun:"executed_at"`
	Metadata        map[string]interface{} `bun:"metadata,type:jsonb"`
	CreatedAt       time.Time              `bun:"created_at,nullzero,default:current_timestamp"`
}

// ContractBalanceDao maps to the 'contract_balances' table, the cached per
// user, per token custody balance. Rows are deleted when the balance reaches
// zero.
type ContractBalanceDao struct {
	bun.BaseModel `bun:"table:contract_balances,alias:cb"`
	UserID        string    `bun:"user_id,pk,type:uuid"`
	TokenAddress  string    `bun:"token_address,pk,type:varchar(42)"`
	Balance       string    `bun:"balance,notnull,type:numeric(78,0)"`
	TokenSymbol   string    `bun:"token_symbol,type:varchar(32)"`
	TokenDecimals int       `bun:"token_decimals,notnull,default:18"`
	LastUpdatedAt time.Time `bun:"last_updated_at,nullzero,default:current_timestamp"`
}

// TradingActivityDao maps to the 'trading_activities' ledger. Append-only:
// one row per completed deposit, withdrawal or swap.
type TradingActivityDao struct {
	bun.BaseModel   `bun:"table:trading_activities,alias:ta"`
	ID              int64                  `bun:"id,pk,autoincrement"`
	UserID          string                 `bun:"user_id,notnull,type:uuid"`
	TransactionHash string                 `bun:"transaction_hash,notnull,type:varchar(66)"`
	TradeType       string                 `bun:"trade_type,notnull,type:varchar(16)"`
	TokenIn         *string                `bun:"token_in,type:varchar(42)"`
	TokenOut        *string                `bun:"token_out,type:varchar(42)"`
	AmountIn        *string                `bun:"amount_in,type:numeric(78,0)"`
	AmountOut       *string                `bun:"amount_out,type:numeric(78,0)"`
	Status          string                 `bun:"status,notnull,type:varchar(16)"`
	SwapSource      *string                `bun:"swap_source,type:varchar(16)"`
	Metadata        map[string]interface{} `bun:"metadata,type:jsonb"`
	CreatedAt       time.Time              `bun:"created_at,nullzero,default:current_timestamp"`
}

// PendingStrategyDao maps to the 'pending_strategies' table. A strategy is a
// free-text trading note captured in chat before the order lands on-chain; it
// is spliced into the order's metadata when the matching LimitOrderCreated
// event arrives.
type PendingStrategyDao struct {
	bun.BaseModel `bun:"table:pending_strategies,alias:ps"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        string    `bun:"user_id,notnull,type:uuid"`
	TokenIn       string    `bun:"token_in,notnull,type:varchar(42)"`
	TokenOut      string    `bun:"token_out,notnull,type:varchar(42)"`
	Strategy      string    `bun:"strategy,notnull,type:text"`
	Status        string    `bun:"status,notnull,type:varchar(16),default:'pending'"`
	OrderID       *string   `bun:"order_id,type:varchar(66)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}
