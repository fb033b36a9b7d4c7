package settlement

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperledger/internal/entity"
)

func TestApplyFill_Buy(t *testing.T) {
	balances := entity.Balances{
		"USDT": {Asset: "USDT", Available: 1000, Total: 1000},
	}

	updated, err := ApplyFill(balances, "BUY", "BTC", "USDT", 50000, 0.01, 0.001)
	require.NoError(t, err)

	assert.InDelta(t, 500.0, updated["USDT"].Available, 1e-9)
	assert.InDelta(t, 0.00999, updated["BTC"].Available, 1e-9)
	// locked untouched, totals follow available
	assert.Equal(t, 0.0, updated["BTC"].Locked)
	assert.InDelta(t, updated["BTC"].Available, updated["BTC"].Total, 1e-12)
	assert.InDelta(t, updated["USDT"].Available, updated["USDT"].Total, 1e-12)
}

func TestApplyFill_Sell(t *testing.T) {
	balances := entity.Balances{
		"BTC": {Asset: "BTC", Available: 1, Total: 1},
	}

	updated, err := ApplyFill(balances, "SELL", "BTC", "USDT", 40000, 0.5, 0.001)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, updated["BTC"].Available, 1e-9)
	// 0.5*40000 = 20000 gross, fee 20 in quote
	assert.InDelta(t, 19980.0, updated["USDT"].Available, 1e-9)
	assert.InDelta(t, updated["USDT"].Available, updated["USDT"].Total, 1e-12)
}

func TestApplyFill_SideCaseInsensitive(t *testing.T) {
	balances := entity.Balances{
		"USDT": {Asset: "USDT", Available: 1000, Total: 1000},
	}
	_, err := ApplyFill(balances, "buy", "BTC", "USDT", 100, 1, 0.001)
	require.NoError(t, err)

	_, err = ApplyFill(balances, "Sell", "BTC", "USDT", 100, 0.5, 0.001)
	require.NoError(t, err)
}

func TestApplyFill_BuyExactCost(t *testing.T) {
	// quote available equals cost exactly: quote drains to zero,
	// base credited net of fee
	balances := entity.Balances{
		"USDT": {Asset: "USDT", Available: 500, Total: 500},
	}

	updated, err := ApplyFill(balances, "BUY", "BTC", "USDT", 50000, 0.01, 0.001)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, updated["USDT"].Available, 1e-9)
	assert.InDelta(t, 0.01-0.01*0.001, updated["BTC"].Available, 1e-9)
}

func TestApplyFill_InsufficientBalance(t *testing.T) {
	t.Run("buy rejected when short beyond tolerance", func(t *testing.T) {
		balances := entity.Balances{
			"USDT": {Asset: "USDT", Available: 500 - 1e-10, Total: 500 - 1e-10},
		}
		_, err := ApplyFill(balances, "BUY", "BTC", "USDT", 100, 5, 0.001)
		assert.True(t, errors.Is(err, ErrInsufficientBalance))
	})

	t.Run("buy accepted within tolerance", func(t *testing.T) {
		balances := entity.Balances{
			"USDT": {Asset: "USDT", Available: 500 - 1e-13, Total: 500 - 1e-13},
		}
		_, err := ApplyFill(balances, "BUY", "BTC", "USDT", 100, 5, 0.001)
		assert.NoError(t, err)
	})

	t.Run("sell rejected without base funds", func(t *testing.T) {
		balances := entity.Balances{}
		_, err := ApplyFill(balances, "SELL", "BTC", "USDT", 100, 1, 0.001)
		assert.True(t, errors.Is(err, ErrInsufficientBalance))
	})
}

func TestApplyFill_InvalidArguments(t *testing.T) {
	tests := []struct {
		name     string
		side     string
		price    float64
		quantity float64
	}{
		{"unknown side", "HOLD", 100, 1},
		{"empty side", "", 100, 1},
		{"zero price", "BUY", 0, 1},
		{"negative price", "BUY", -5, 1},
		{"zero quantity", "SELL", 100, 0},
		{"negative quantity", "SELL", 100, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			balances := entity.Balances{
				"USDT": {Asset: "USDT", Available: 1000, Total: 1000},
				"BTC":  {Asset: "BTC", Available: 10, Total: 10},
			}
			_, err := ApplyFill(balances, tc.side, "BTC", "USDT", tc.price, tc.quantity, 0.001)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "expected invalid argument, got %v", err)
		})
	}
}

func TestApplyFill_UntouchedRowsPreserved(t *testing.T) {
	balances := entity.Balances{
		"USDT": {Asset: "USDT", Available: 1000, Total: 1000},
		"ETH":  {Asset: "ETH", Available: 3, Locked: 1, Total: 4},
	}

	_, err := ApplyFill(balances, "BUY", "BTC", "USDT", 100, 1, 0.001)
	require.NoError(t, err)

	assert.Equal(t, 3.0, balances["ETH"].Available)
	assert.Equal(t, 1.0, balances["ETH"].Locked)
	assert.Equal(t, 4.0, balances["ETH"].Total)
}

func TestComputeTradeFee_FeeSymmetry(t *testing.T) {
	// BUY fee in base converted by price equals BUY fee in quote
	cases := []struct {
		price    float64
		quantity float64
		rate     float64
	}{
		{50000, 0.01, 0.001},
		{0.123, 456, 0.0005},
		{1, 1, 0.999},
	}

	for _, tc := range cases {
		feeBase, err := ComputeTradeFee("BUY", tc.price, tc.quantity, tc.rate, FeeInBase)
		require.NoError(t, err)
		feeQuote, err := ComputeTradeFee("BUY", tc.price, tc.quantity, tc.rate, FeeInQuote)
		require.NoError(t, err)

		assert.InDelta(t, feeQuote, feeBase*tc.price, 1e-9)
	}
}

func TestComputeTradeFee_SellHasNoBaseFee(t *testing.T) {
	fee, err := ComputeTradeFee("SELL", 50000, 0.01, 0.001, FeeInBase)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fee)

	fee, err = ComputeTradeFee("SELL", 50000, 0.01, 0.001, FeeInQuote)
	require.NoError(t, err)
	assert.InDelta(t, 50000*0.01*0.001, fee, 1e-9)
}

func TestComputeTradeFee_InvalidSide(t *testing.T) {
	_, err := ComputeTradeFee("SHORT", 100, 1, 0.001, FeeInQuote)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestEffectiveFeeRate_DefaultSubstitution(t *testing.T) {
	t.Run("env default used for non-positive rates", func(t *testing.T) {
		t.Setenv("PAPER_TRADE_FEE_RATE", "0.002")

		explicit, err := ComputeTradeFee("BUY", 100, 2, 0.002, FeeInQuote)
		require.NoError(t, err)

		for _, rate := range []float64{0, -5} {
			got, err := ComputeTradeFee("BUY", 100, 2, rate, FeeInQuote)
			require.NoError(t, err)
			assert.Equal(t, explicit, got)
		}
	})

	t.Run("fallback when env invalid", func(t *testing.T) {
		t.Setenv("PAPER_TRADE_FEE_RATE", "not-a-number")
		assert.Equal(t, 0.001, EffectiveFeeRate(0))

		t.Setenv("PAPER_TRADE_FEE_RATE", "-1")
		assert.Equal(t, 0.001, EffectiveFeeRate(0))
	})

	t.Run("apply fill resolves the same rate", func(t *testing.T) {
		t.Setenv("PAPER_TRADE_FEE_RATE", "0.005")

		withDefault := entity.Balances{"USDT": {Asset: "USDT", Available: 1000, Total: 1000}}
		_, err := ApplyFill(withDefault, "BUY", "BTC", "USDT", 100, 1, 0)
		require.NoError(t, err)

		withExplicit := entity.Balances{"USDT": {Asset: "USDT", Available: 1000, Total: 1000}}
		_, err = ApplyFill(withExplicit, "BUY", "BTC", "USDT", 100, 1, 0.005)
		require.NoError(t, err)

		assert.Equal(t, withExplicit["BTC"].Available, withDefault["BTC"].Available)
	})
}
