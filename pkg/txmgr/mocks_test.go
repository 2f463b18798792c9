package txmgr

import (
	"context"
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MockBackend is a mock implementation of ethereum.Backend
type MockBackend struct {
	PendingNonceAtFunc      func(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPriceFunc     func(ctx context.Context) (*big.Int, error)
	SendTransactionFunc     func(ctx context.Context, tx *types.Transaction) error
	TransactionReceiptFunc  func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumberFunc      func(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContractFunc        func(ctx context.Context, msg geth.CallMsg, blockNumber *big.Int) ([]byte, error)
	SubscribeFilterLogsFunc func(ctx context.Context, q geth.FilterQuery, ch chan<- types.Log) (geth.Subscription, error)
}

func (m *MockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if m.PendingNonceAtFunc != nil {
		return m.PendingNonceAtFunc(ctx, account)
	}
	return 0, nil
}

func (m *MockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasPriceFunc != nil {
		return m.SuggestGasPriceFunc(ctx)
	}
	return big.NewInt(1), nil
}

func (m *MockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if m.SendTransactionFunc != nil {
		return m.SendTransactionFunc(ctx, tx)
	}
	return nil
}

func (m *MockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if m.TransactionReceiptFunc != nil {
		return m.TransactionReceiptFunc(ctx, txHash)
	}
	return nil, geth.NotFound
}

func (m *MockBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if m.HeaderByNumberFunc != nil {
		return m.HeaderByNumberFunc(ctx, number)
	}
	return &types.Header{Number: big.NewInt(0)}, nil
}

func (m *MockBackend) CallContract(ctx context.Context, msg geth.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if m.CallContractFunc != nil {
		return m.CallContractFunc(ctx, msg, blockNumber)
	}
	return nil, nil
}

func (m *MockBackend) SubscribeFilterLogs(ctx context.Context, q geth.FilterQuery, ch chan<- types.Log) (geth.Subscription, error) {
	if m.SubscribeFilterLogsFunc != nil {
		return m.SubscribeFilterLogsFunc(ctx, q, ch)
	}
	return nil, nil
}

// MockSigner is a mock implementation of Signer. The default builds an
// unsigned legacy transaction, which is enough to produce a stable hash.
type MockSigner struct {
	SignCustodyTxFunc func(nonce uint64, gasLimit uint64, gasPrice *big.Int, data []byte) (*types.Transaction, error)
}

func (m *MockSigner) SignCustodyTx(nonce uint64, gasLimit uint64, gasPrice *big.Int, data []byte) (*types.Transaction, error) {
	if m.SignCustodyTxFunc != nil {
		return m.SignCustodyTxFunc(nonce, gasLimit, gasPrice, data)
	}
	return types.NewTransaction(nonce, common.Address{}, big.NewInt(0), gasLimit, gasPrice, data), nil
}
