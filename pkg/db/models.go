package db

// OrderStatus represents the lifecycle state of a mirrored limit order
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusExecuted  OrderStatus = "executed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// TradeType tags a trading activity ledger row
type TradeType string

const (
	TradeTypeDeposit    TradeType = "DEPOSIT"
	TradeTypeWithdrawal TradeType = "WITHDRAWAL"
	TradeTypeSwap       TradeType = "SWAP"
)

// SwapSource distinguishes swaps funded from custody balances from swaps
// funded directly from the user's wallet
type SwapSource string

const (
	SwapSourceContract SwapSource = "CONTRACT"
	SwapSourceWallet   SwapSource = "WALLET"
)

// ActivityStatus tags the outcome recorded on a ledger row
type ActivityStatus string

const (
	ActivityStatusCompleted ActivityStatus = "completed"
)

// StrategyStatus represents the lifecycle of a pending trading strategy
type StrategyStatus string

const (
	StrategyStatusPending StrategyStatus = "pending"
	StrategyStatusUsed    StrategyStatus = "used"
)
