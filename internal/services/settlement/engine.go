// Package settlement implements pure fill and fee math for paper trading.
// Fees are asymmetric: a BUY is charged in the base asset, a SELL in the
// quote asset. No I/O happens here; callers inject balances and get them back.
package settlement

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/paperledger/internal/entity"
)

const (
	// balanceEpsilon absorbs float drift accumulated over many fills so
	// that a balance a hair below the required amount still settles.
	balanceEpsilon = 1e-12

	fallbackFeeRate = 0.001
	feeRateEnv      = "PAPER_TRADE_FEE_RATE"
)

var (
	// ErrInvalidArgument reports a malformed side or a non-positive price
	// or quantity. It indicates a bug in the caller, never swallow it.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientBalance reports a fill that would drive the available
	// balance negative beyond the settlement tolerance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// FeeCurrency selects the denomination of a fee amount returned by ComputeTradeFee.
type FeeCurrency string

const (
	FeeInQuote FeeCurrency = "quote"
	FeeInBase  FeeCurrency = "base"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// EffectiveFeeRate resolves the fee rate actually charged. A positive rate
// is used as-is; otherwise the PAPER_TRADE_FEE_RATE environment variable is
// consulted, falling back to 0.001 when it is unset or invalid. ApplyFill
// and ComputeTradeFee share this resolution rule.
func EffectiveFeeRate(rate float64) float64 {
	if rate > 0 {
		return rate
	}
	if v := os.Getenv(feeRateEnv); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallbackFeeRate
}

// ApplyFill settles one immediate fill against the balances and returns them.
// BUY deducts price*quantity from the quote asset and credits the base asset
// net of fee; SELL deducts quantity from the base asset and credits the quote
// asset net of fee. Rows for both touched assets get Total recomputed; other
// rows are untouched. The input map is mutated in place.
func ApplyFill(balances entity.Balances, side, baseAsset, quoteAsset string, price, quantity, feeRate float64) (entity.Balances, error) {
	if balances == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "balances must not be nil")
	}
	if price <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "price must be positive, got %v", price)
	}
	if quantity <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "quantity must be positive, got %v", quantity)
	}

	rate := EffectiveFeeRate(feeRate)
	base := balances.Row(baseAsset)
	quote := balances.Row(quoteAsset)

	switch strings.ToUpper(side) {
	case SideBuy:
		cost := price * quantity
		if quote.Available+balanceEpsilon < cost {
			return nil, errors.Wrapf(ErrInsufficientBalance, "%s: need %v, have %v", quoteAsset, cost, quote.Available)
		}
		quote.Available -= cost

		feeBase := quantity * rate
		base.Available += max(quantity-feeBase, 0)

	case SideSell:
		if base.Available+balanceEpsilon < quantity {
			return nil, errors.Wrapf(ErrInsufficientBalance, "%s: need %v, have %v", baseAsset, quantity, base.Available)
		}
		base.Available -= quantity

		gross := price * quantity
		feeQuote := gross * rate
		quote.Available += max(gross-feeQuote, 0)

	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "side must be BUY or SELL, got %q", side)
	}

	base.RecomputeTotal()
	quote.RecomputeTotal()
	return balances, nil
}

// ComputeTradeFee returns the fee charged for one fill, denominated in the
// requested currency. A BUY fee accrues in the base asset and is converted
// to quote by multiplying with the price when requested. A SELL fee accrues
// in the quote asset only: requesting it in base always yields 0.
func ComputeTradeFee(side string, price, quantity, feeRate float64, in FeeCurrency) (float64, error) {
	if price <= 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "price must be positive, got %v", price)
	}
	if quantity <= 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "quantity must be positive, got %v", quantity)
	}

	rate := EffectiveFeeRate(feeRate)

	switch strings.ToUpper(side) {
	case SideBuy:
		feeBase := quantity * rate
		if in == FeeInQuote {
			return feeBase * price, nil
		}
		return feeBase, nil
	case SideSell:
		if in == FeeInBase {
			return 0, nil
		}
		return price * quantity * rate, nil
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "side must be BUY or SELL, got %q", side)
	}
}
