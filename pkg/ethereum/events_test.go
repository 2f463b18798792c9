package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func custodyLog(t *testing.T, name string, topics []common.Hash, args ...interface{}) types.Log {
	t.Helper()
	event, ok := CustodyABI.Events[name]
	require.True(t, ok)

	data, err := event.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)

	return types.Log{
		Topics: append([]common.Hash{event.ID}, topics...),
		Data:   data,
	}
}

func TestParseTokenReceived(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")

	event, err := ParseTokenReceived(custodyLog(t, EventTokenReceived, nil, user, token, big.NewInt(1_000_000)))
	require.NoError(t, err)

	assert.Equal(t, user, event.User)
	assert.Equal(t, token, event.Token)
	assert.Equal(t, "1000000", event.Amount.String())
}

func TestParseLimitOrderExecuted(t *testing.T) {
	orderID := [32]byte{0xab, 0xcd}
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenIn := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenOut := common.HexToAddress("0x3333333333333333333333333333333333333333")

	log := custodyLog(t, EventLimitOrderExecuted, []common.Hash{common.Hash(orderID)},
		user, tokenIn, tokenOut, big.NewInt(100), big.NewInt(200))
	event, err := ParseLimitOrderExecuted(log)
	require.NoError(t, err)

	assert.Equal(t, orderID, event.OrderID)
	assert.Equal(t, user, event.User)
	assert.Equal(t, tokenIn, event.TokenIn)
	assert.Equal(t, tokenOut, event.TokenOut)
	assert.Equal(t, "100", event.AmountIn.String())
	assert.Equal(t, "200", event.AmountOut.String())
}

func TestParseLimitOrderCancelledRequiresOrderTopic(t *testing.T) {
	log := custodyLog(t, EventLimitOrderCancelled, nil)
	_, err := ParseLimitOrderCancelled(log)
	assert.Error(t, err)

	orderID := [32]byte{0x01}
	log = custodyLog(t, EventLimitOrderCancelled, []common.Hash{common.Hash(orderID)})
	event, err := ParseLimitOrderCancelled(log)
	require.NoError(t, err)
	assert.Equal(t, orderID, event.OrderID)
}

func TestParseRejectsMismatchedTopic(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")

	// A Received log handed to the TokenReceived parser must not decode
	log := custodyLog(t, EventReceived, nil, user, big.NewInt(1))
	_, err := ParseTokenReceived(log)
	assert.Error(t, err)
}

func TestSwapEventVariantsShareLayout(t *testing.T) {
	user := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenIn := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenOut := common.HexToAddress("0x3333333333333333333333333333333333333333")

	for _, name := range []string{EventSwapExecuted, EventWalletSwapExecuted} {
		log := custodyLog(t, name, nil, user, tokenIn, tokenOut, big.NewInt(5), big.NewInt(9))
		event, err := ParseSwapExecuted(name, log)
		require.NoError(t, err, name)
		assert.Equal(t, "5", event.AmountIn.String(), name)
		assert.Equal(t, "9", event.AmountOut.String(), name)
	}
}
