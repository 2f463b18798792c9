package ethereum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Custody event names as they appear in the contract ABI
const (
	EventReceived            = "Received"
	EventTokenReceived       = "TokenReceived"
	EventWalletSwapExecuted  = "WalletSwapExecuted"
	EventSwapExecuted        = "SwapExecuted"
	EventLimitOrderCreated   = "LimitOrderCreated"
	EventLimitOrderExecuted  = "LimitOrderExecuted"
	EventLimitOrderCancelled = "LimitOrderCancelled"
	EventWithdrawn           = "Withdrawn"
)

// ReceivedEvent is emitted on a native-coin deposit into custody
type ReceivedEvent struct {
	User   common.Address
	Amount *big.Int
	Raw    types.Log
}

// TokenReceivedEvent is emitted on an ERC-20 deposit into custody
type TokenReceivedEvent struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
	Raw    types.Log
}

// SwapExecutedEvent is emitted when custody executes a swap on a user's
// deposited balance. WalletSwapExecuted carries the same payload for swaps
// funded directly from the user's wallet.
type SwapExecutedEvent struct {
	User      common.Address
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
	Raw       types.Log
}

// LimitOrderCreatedEvent is emitted when a limit order is placed
type LimitOrderCreatedEvent struct {
	OrderID      [32]byte
	User         common.Address
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Raw          types.Log
}

// LimitOrderExecutedEvent is emitted when an active order is filled
type LimitOrderExecutedEvent struct {
	OrderID   [32]byte
	User      common.Address
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
	Raw       types.Log
}

// LimitOrderCancelledEvent is emitted when an order is cancelled by its owner
type LimitOrderCancelledEvent struct {
	OrderID [32]byte
	Raw     types.Log
}

// WithdrawnEvent is emitted when custody pays a balance out to the user
type WithdrawnEvent struct {
	User   common.Address
	Token  common.Address
	Amount *big.Int
	Raw    types.Log
}

// unpackLog decodes the non-indexed event data for the named event
func unpackLog(name string, log types.Log) ([]interface{}, error) {
	event, ok := CustodyABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("log topic does not match %s", name)
	}
	out, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s log: %w", name, err)
	}
	return out, nil
}

// orderIDTopic extracts the indexed orderId from a limit order log
func orderIDTopic(name string, log types.Log) ([32]byte, error) {
	if len(log.Topics) < 2 {
		return [32]byte{}, fmt.Errorf("%s log missing orderId topic", name)
	}
	return [32]byte(log.Topics[1]), nil
}

// ParseReceived decodes a Received log
func ParseReceived(log types.Log) (*ReceivedEvent, error) {
	out, err := unpackLog(EventReceived, log)
	if err != nil {
		return nil, err
	}
	return &ReceivedEvent{
		User:   out[0].(common.Address),
		Amount: out[1].(*big.Int),
		Raw:    log,
	}, nil
}

// ParseTokenReceived decodes a TokenReceived log
func ParseTokenReceived(log types.Log) (*TokenReceivedEvent, error) {
	out, err := unpackLog(EventTokenReceived, log)
	if err != nil {
		return nil, err
	}
	return &TokenReceivedEvent{
		User:   out[0].(common.Address),
		Token:  out[1].(common.Address),
		Amount: out[2].(*big.Int),
		Raw:    log,
	}, nil
}

// ParseSwapExecuted decodes a SwapExecuted or WalletSwapExecuted log; the two
// events share a payload layout.
func ParseSwapExecuted(name string, log types.Log) (*SwapExecutedEvent, error) {
	out, err := unpackLog(name, log)
	if err != nil {
		return nil, err
	}
	return &SwapExecutedEvent{
		User:      out[0].(common.Address),
		TokenIn:   out[1].(common.Address),
		TokenOut:  out[2].(common.Address),
		AmountIn:  out[3].(*big.Int),
		AmountOut: out[4].(*big.Int),
		Raw:       log,
	}, nil
}

// ParseLimitOrderCreated decodes a LimitOrderCreated log
func ParseLimitOrderCreated(log types.Log) (*LimitOrderCreatedEvent, error) {
	orderID, err := orderIDTopic(EventLimitOrderCreated, log)
	if err != nil {
		return nil, err
	}
	out, err := unpackLog(EventLimitOrderCreated, log)
	if err != nil {
		return nil, err
	}
	return &LimitOrderCreatedEvent{
		OrderID:      orderID,
		User:         out[0].(common.Address),
		TokenIn:      out[1].(common.Address),
		TokenOut:     out[2].(common.Address),
		AmountIn:     out[3].(*big.Int),
		AmountOutMin: out[4].(*big.Int),
		Raw:          log,
	}, nil
}

// ParseLimitOrderExecuted decodes a LimitOrderExecuted log
func ParseLimitOrderExecuted(log types.Log) (*LimitOrderExecutedEvent, error) {
	orderID, err := orderIDTopic(EventLimitOrderExecuted, log)
	if err != nil {
		return nil, err
	}
	out, err := unpackLog(EventLimitOrderExecuted, log)
	if err != nil {
		return nil, err
	}
	return &LimitOrderExecutedEvent{
		OrderID:   orderID,
		User:      out[0].(common.Address),
		TokenIn:   out[1].(common.Address),
		TokenOut:  out[2].(common.Address),
		AmountIn:  out[3].(*big.Int),
		AmountOut: out[4].(*big.Int),
		Raw:       log,
	}, nil
}

// ParseLimitOrderCancelled decodes a LimitOrderCancelled log
func ParseLimitOrderCancelled(log types.Log) (*LimitOrderCancelledEvent, error) {
	orderID, err := orderIDTopic(EventLimitOrderCancelled, log)
	if err != nil {
		return nil, err
	}
	return &LimitOrderCancelledEvent{OrderID: orderID, Raw: log}, nil
}

// ParseWithdrawn decodes a Withdrawn log
func ParseWithdrawn(log types.Log) (*WithdrawnEvent, error) {
	out, err := unpackLog(EventWithdrawn, log)
	if err != nil {
		return nil, err
	}
	return &WithdrawnEvent{
		User:   out[0].(common.Address),
		Token:  out[1].(common.Address),
		Amount: out[2].(*big.Int),
		Raw:    log,
	}, nil
}
