package settlement

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		quote  string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"BTCUSD", "BTC", "USD"},
		{"ADABUSD", "ADA", "BUSD"},
		{"SOLUSDC", "SOL", "USDC"},
		{"DOGEETH", "DOGE", "ETH"},
		{"XRPBNB", "XRP", "BNB"},
	}

	for _, tc := range tests {
		t.Run(tc.symbol, func(t *testing.T) {
			base, quote, err := SplitSymbol(tc.symbol)
			require.NoError(t, err)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.quote, quote)
		})
	}
}

func TestSplitSymbol_SuffixPrecedence(t *testing.T) {
	// USDT is checked before USD, so BTCUSDT never resolves as base=BTCUSD
	base, quote, err := SplitSymbol("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)
}

func TestSplitSymbol_Unresolvable(t *testing.T) {
	_, _, err := SplitSymbol("XYZ")
	assert.True(t, errors.Is(err, ErrUnresolvableSymbol))
}
