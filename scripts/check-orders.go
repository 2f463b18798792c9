//go:build ignore

// Dumps the custody contract's active limit order book. Useful when the
// executor logs a skip and you want to see the raw on-chain state.
//
//	go run scripts/check-orders.go -rpc https://rpc.soniclabs.com -custody 0x...
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	custody "github.com/finbound/defi-assistant/pkg/ethereum"
)

func main() {
	rpcURL := flag.String("rpc", "https://rpc.soniclabs.com", "chain RPC endpoint")
	custodyAddr := flag.String("custody", "", "custody contract address")
	batch := flag.Int64("batch", 10, "orders per page")
	flag.Parse()

	if *custodyAddr == "" {
		fmt.Fprintln(os.Stderr, "missing -custody")
		os.Exit(1)
	}

	client, err := ethclient.Dial(*rpcURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	contract := common.HexToAddress(*custodyAddr)
	total, err := callUint(ctx, client, contract, "getTotalActiveOrders")
	if err != nil {
		fmt.Fprintf(os.Stderr, "getTotalActiveOrders failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Active Limit Orders (%s) ===\n", contract.Hex())
	fmt.Printf("Total: %s\n\n", total)

	for offset := big.NewInt(0); offset.Cmp(total) < 0; offset = new(big.Int).Add(offset, big.NewInt(*batch)) {
		orders, err := callOrders(ctx, client, contract, offset, big.NewInt(*batch))
		if err != nil {
			fmt.Fprintf(os.Stderr, "getActiveOrders(%s) failed: %v\n", offset, err)
			os.Exit(1)
		}
		for _, order := range orders {
			fmt.Printf("order %s\n", common.Hash(order.OrderID).Hex())
			fmt.Printf("  user:   %s\n", order.User.Hex())
			fmt.Printf("  sell:   %s of %s\n", order.AmountIn, order.TokenIn.Hex())
			fmt.Printf("  min:    %s of %s\n", order.AmountOutMin, order.TokenOut.Hex())
		}
	}
}

func callUint(ctx context.Context, client *ethclient.Client, contract common.Address, method string) (*big.Int, error) {
	data, err := custody.CustodyABI.Pack(method)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := custody.CustodyABI.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func callOrders(ctx context.Context, client *ethclient.Client, contract common.Address, offset, limit *big.Int) ([]custody.OrderDetails, error) {
	data, err := custody.CustodyABI.Pack("getActiveOrders", offset, limit)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return custody.UnpackActiveOrders(out)
}
