package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/internal/metrics"
	"github.com/finbound/defi-assistant/pkg/config"
)

// APIError is a non-2xx response from the aggregator, carrying the provider's
// body so callers can log it while showing users a generic message.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aggregator returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the swap aggregator's smart order router. A quote is a two
// step exchange: /sor/quote/v2 prices the route and returns a pathId, then
// /sor/assemble turns the pathId into ready-to-send transaction data.
type Client struct {
	baseURL string
	chainID int64
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an aggregator API client
func NewClient(cfg *config.AggregatorConfig, chainID int64, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		chainID: chainID,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger,
	}
}

// QuoteRequest asks for the best route swapping AmountIn of TokenIn into
// TokenOut on behalf of UserAddr
type QuoteRequest struct {
	TokenIn         common.Address
	TokenOut        common.Address
	AmountIn        *big.Int
	UserAddr        common.Address
	SlippagePercent float64
}

// SwapQuote is an assembled route ready for on-chain execution
type SwapQuote struct {
	PathID         string
	PriceImpact    float64
	To             common.Address
	Data           []byte
	ExpectedOutput *big.Int
}

type quoteResponse struct {
	PathID      string   `json:"pathId"`
	PriceImpact float64  `json:"priceImpact"`
	OutAmounts  []string `json:"outAmounts"`
}

type assembleResponse struct {
	Transaction struct {
		To   string `json:"to"`
		Data string `json:"data"`
	} `json:"transaction"`
	OutputTokens []struct {
		TokenAddress string `json:"tokenAddress"`
		Amount       string `json:"amount"`
	} `json:"outputTokens"`
}

// GetSwapQuote prices and assembles a swap route
func (c *Client) GetSwapQuote(ctx context.Context, req QuoteRequest) (*SwapQuote, error) {
	start := time.Now()
	defer func() {
		metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	}()

	quoteBody := map[string]interface{}{
		"chainId": c.chainID,
		"inputTokens": []map[string]interface{}{
			{"tokenAddress": req.TokenIn.Hex(), "amount": req.AmountIn.String()},
		},
		"outputTokens": []map[string]interface{}{
			{"tokenAddress": req.TokenOut.Hex(), "proportion": 1},
		},
		"userAddr":             req.UserAddr.Hex(),
		"slippageLimitPercent": req.SlippagePercent,
		"compact":              true,
	}

	var quote quoteResponse
	if err := c.post(ctx, "/sor/quote/v2", quoteBody, &quote); err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if quote.PathID == "" {
		return nil, fmt.Errorf("aggregator returned no route for %s -> %s", req.TokenIn.Hex(), req.TokenOut.Hex())
	}

	assembleBody := map[string]interface{}{
		"userAddr": req.UserAddr.Hex(),
		"pathId":   quote.PathID,
		"simulate": false,
	}

	var assembled assembleResponse
	if err := c.post(ctx, "/sor/assemble", assembleBody, &assembled); err != nil {
		return nil, fmt.Errorf("assemble request failed: %w", err)
	}
	if assembled.Transaction.To == "" || len(assembled.OutputTokens) == 0 {
		return nil, fmt.Errorf("aggregator returned incomplete transaction for path %s", quote.PathID)
	}

	expected, ok := new(big.Int).SetString(assembled.OutputTokens[0].Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid output amount %q from aggregator", assembled.OutputTokens[0].Amount)
	}

	return &SwapQuote{
		PathID:         quote.PathID,
		PriceImpact:    quote.PriceImpact,
		To:             common.HexToAddress(assembled.Transaction.To),
		Data:           common.FromHex(assembled.Transaction.Data),
		ExpectedOutput: expected,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// MinOutput applies a slippage tolerance to an expected amount using basis
// point integer arithmetic, e.g. 1% slippage keeps 9900/10000 of the amount.
func MinOutput(amount *big.Int, slippagePercent float64) *big.Int {
	bps := big.NewInt(10000 - int64(slippagePercent*100))
	return new(big.Int).Div(new(big.Int).Mul(amount, bps), big.NewInt(10000))
}
