package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/pkg/config"
)

// Backend is the subset of the RPC client used by this application. It is
// satisfied by *ethclient.Client and faked in tests.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Client wraps the RPC connection, the assistant hot wallet key and the
// custody contract address.
type Client struct {
	config   *config.EthereumConfig
	client   *ethclient.Client
	wsClient *ethclient.Client
	key      *ecdsa.PrivateKey
	address  common.Address
	custody  common.Address
	logger   *zap.Logger
}

// NewClient connects to the chain RPC and loads the assistant signing key
func NewClient(cfg *config.EthereumConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	// WebSocket connection for event streaming (optional, falls back to the
	// HTTP endpoint which still supports eth_subscribe on some providers)
	var wsClient *ethclient.Client
	if cfg.WSUrl != "" {
		wsClient, err = ethclient.Dial(cfg.WSUrl)
		if err != nil {
			logger.Warn("Failed to connect to WebSocket endpoint, using primary RPC for subscriptions",
				zap.Error(err))
		}
	}

	key, err := crypto.HexToECDSA(cfg.AssistantKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load assistant private key: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	custody := common.HexToAddress(cfg.CustodyContract)

	logger.Info("Connected to chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("custody_contract", custody.Hex()),
		zap.String("assistant_address", address.Hex()))

	return &Client{
		config:   cfg,
		client:   client,
		wsClient: wsClient,
		key:      key,
		address:  address,
		custody:  custody,
		logger:   logger,
	}, nil
}

// Close closes the underlying RPC connections
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
	if c.wsClient != nil {
		c.wsClient.Close()
	}
}

// Backend returns the primary RPC backend
func (c *Client) Backend() Backend {
	return c.client
}

// SubscriptionBackend returns the backend used for log subscriptions,
// preferring the WebSocket connection when available
func (c *Client) SubscriptionBackend() Backend {
	if c.wsClient != nil {
		return c.wsClient
	}
	return c.client
}

// Key returns the assistant signing key
func (c *Client) Key() *ecdsa.PrivateKey {
	return c.key
}

// Address returns the assistant wallet address
func (c *Client) Address() common.Address {
	return c.address
}

// CustodyAddress returns the custody contract address
func (c *Client) CustodyAddress() common.Address {
	return c.custody
}

// ChainID returns the configured chain id
func (c *Client) ChainID() *big.Int {
	return big.NewInt(c.config.ChainID)
}

// SignCustodyTx builds and signs a legacy transaction addressed to the
// custody contract
func (c *Client) SignCustodyTx(nonce uint64, gasLimit uint64, gasPrice *big.Int, data []byte) (*types.Transaction, error) {
	tx := types.NewTransaction(nonce, c.custody, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.ChainID()), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// LatestBlockNumber returns the current head block number
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}
