package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/pkg/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.AggregatorConfig{
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	}, 146, zap.NewNop())
}

func TestGetSwapQuote(t *testing.T) {
	var quoteReq map[string]interface{}
	var assembleReq map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sor/quote/v2":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&quoteReq))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"pathId":      "path-123",
				"priceImpact": 0.12,
				"outAmounts":  []string{"600000000000000000"},
			})
		case "/sor/assemble":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&assembleReq))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"transaction": map[string]string{
					"to":   "0x3333333333333333333333333333333333333333",
					"data": "0xdeadbeef",
				},
				"outputTokens": []map[string]string{
					{"tokenAddress": "0x2222222222222222222222222222222222222222", "amount": "600000000000000000"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	quote, err := client.GetSwapQuote(context.Background(), QuoteRequest{
		TokenIn:         common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TokenOut:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
		AmountIn:        big.NewInt(1_000_000),
		UserAddr:        common.HexToAddress("0x4444444444444444444444444444444444444444"),
		SlippagePercent: 5.0,
	})
	require.NoError(t, err)

	assert.Equal(t, "path-123", quote.PathID)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), quote.To)
	assert.Equal(t, common.FromHex("0xdeadbeef"), quote.Data)
	assert.Equal(t, "600000000000000000", quote.ExpectedOutput.String())

	// The quote request carries the chain, pair, amount and slippage
	assert.EqualValues(t, 146, quoteReq["chainId"])
	assert.EqualValues(t, 5.0, quoteReq["slippageLimitPercent"])
	inputs := quoteReq["inputTokens"].([]interface{})
	require.Len(t, inputs, 1)
	assert.Equal(t, "1000000", inputs[0].(map[string]interface{})["amount"])

	// Assemble reuses the quoted path
	assert.Equal(t, "path-123", assembleReq["pathId"])
}

func TestGetSwapQuoteSurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"no viable path"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetSwapQuote(context.Background(), QuoteRequest{
		TokenIn:  common.HexToAddress("0x01"),
		TokenOut: common.HexToAddress("0x02"),
		AmountIn: big.NewInt(1),
	})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "no viable path")
}

func TestGetSwapQuoteRejectsEmptyRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"pathId": ""})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetSwapQuote(context.Background(), QuoteRequest{
		TokenIn:  common.HexToAddress("0x01"),
		TokenOut: common.HexToAddress("0x02"),
		AmountIn: big.NewInt(1),
	})
	assert.Error(t, err)
}

func TestMinOutput(t *testing.T) {
	amount := new(big.Int)
	amount.SetString("1000000000000000000", 10)

	// 1% slippage keeps 99%
	assert.Equal(t, "990000000000000000", MinOutput(amount, 1.0).String())
	// 5% slippage keeps 95%
	assert.Equal(t, "950000000000000000", MinOutput(amount, 5.0).String())
	// 0% keeps everything
	assert.Equal(t, amount.String(), MinOutput(amount, 0).String())
}
