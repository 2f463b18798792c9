package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// custodyABIJSON describes the custody contract surface used by the
// assistant: swap execution, deposits/withdrawals and limit order lifecycle.
const custodyABIJSON = `[
  {"type":"function","name":"executeSwap","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"executeWalletSwap","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"createLimitOrder","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelLimitOrder","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"executeLimitOrder","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"bytes32"},{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"getTotalActiveOrders","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getActiveOrders","stateMutability":"view","inputs":[{"name":"offset","type":"uint256"},{"name":"limit","type":"uint256"}],"outputs":[{"name":"orders","type":"tuple[]","components":[{"name":"orderId","type":"bytes32"},{"name":"user","type":"address"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"}]},{"name":"total","type":"uint256"}]},
  {"type":"function","name":"getUserBalance","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"Received","inputs":[{"name":"user","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"TokenReceived","inputs":[{"name":"user","type":"address","indexed":false},{"name":"token","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"WalletSwapExecuted","inputs":[{"name":"user","type":"address","indexed":false},{"name":"tokenIn","type":"address","indexed":false},{"name":"tokenOut","type":"address","indexed":false},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountOut","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"SwapExecuted","inputs":[{"name":"user","type":"address","indexed":false},{"name":"tokenIn","type":"address","indexed":false},{"name":"tokenOut","type":"address","indexed":false},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountOut","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"LimitOrderCreated","inputs":[{"name":"orderId","type":"bytes32","indexed":true},{"name":"user","type":"address","indexed":false},{"name":"tokenIn","type":"address","indexed":false},{"name":"tokenOut","type":"address","indexed":false},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountOutMin","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"LimitOrderExecuted","inputs":[{"name":"orderId","type":"bytes32","indexed":true},{"name":"user","type":"address","indexed":false},{"name":"tokenIn","type":"address","indexed":false},{"name":"tokenOut","type":"address","indexed":false},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountOut","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"LimitOrderCancelled","inputs":[{"name":"orderId","type":"bytes32","indexed":true}],"anonymous":false},
  {"type":"event","name":"Withdrawn","inputs":[{"name":"user","type":"address","indexed":false},{"name":"token","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false}
]`

// CustodyABI is the parsed ABI of the custody contract
var CustodyABI = mustParseABI(custodyABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// OrderDetails mirrors the on-chain active order struct
type OrderDetails struct {
	OrderID      [32]byte       `abi:"orderId"`
	User         common.Address `abi:"user"`
	TokenIn      common.Address `abi:"tokenIn"`
	TokenOut     common.Address `abi:"tokenOut"`
	AmountIn     *big.Int       `abi:"amountIn"`
	AmountOutMin *big.Int       `abi:"amountOutMin"`
}

// GetTotalActiveOrders reads the number of currently active limit orders
func (c *Client) GetTotalActiveOrders(ctx context.Context) (*big.Int, error) {
	out, err := c.callCustody(ctx, "getTotalActiveOrders")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// GetActiveOrders reads one page of active limit orders
func (c *Client) GetActiveOrders(ctx context.Context, offset, limit *big.Int) ([]OrderDetails, error) {
	ret, err := c.callCustodyRaw(ctx, "getActiveOrders", offset, limit)
	if err != nil {
		return nil, err
	}
	return UnpackActiveOrders(ret)
}

// UnpackActiveOrders decodes a raw getActiveOrders return value
func UnpackActiveOrders(ret []byte) ([]OrderDetails, error) {
	out, err := CustodyABI.Unpack("getActiveOrders", ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getActiveOrders result: %w", err)
	}

	// The tuple slice comes back as an anonymous struct slice; convert it
	// into our named type.
	raw := out[0]
	orders, ok := raw.([]struct {
		OrderId      [32]byte       `json:"orderId"`
		User         common.Address `json:"user"`
		TokenIn      common.Address `json:"tokenIn"`
		TokenOut     common.Address `json:"tokenOut"`
		AmountIn     *big.Int       `json:"amountIn"`
		AmountOutMin *big.Int       `json:"amountOutMin"`
	})
	if !ok {
		return nil, fmt.Errorf("unexpected getActiveOrders return type %T", raw)
	}

	result := make([]OrderDetails, len(orders))
	for i, o := range orders {
		result[i] = OrderDetails{
			OrderID:      o.OrderId,
			User:         o.User,
			TokenIn:      o.TokenIn,
			TokenOut:     o.TokenOut,
			AmountIn:     o.AmountIn,
			AmountOutMin: o.AmountOutMin,
		}
	}
	return result, nil
}

// GetUserBalance reads the authoritative custody balance for a user and token
func (c *Client) GetUserBalance(ctx context.Context, user, token common.Address) (*big.Int, error) {
	out, err := c.callCustody(ctx, "getUserBalance", user, token)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *Client) callCustody(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	ret, err := c.callCustodyRaw(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	out, err := CustodyABI.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

func (c *Client) callCustodyRaw(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := CustodyABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	ret, err := c.client.CallContract(ctx, ethereum.CallMsg{
		From: c.address,
		To:   &c.custody,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	return ret, nil
}
