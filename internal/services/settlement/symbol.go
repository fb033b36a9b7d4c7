package settlement

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnresolvableSymbol reports a symbol whose quote asset could not be
// recognized. Callers handle it by falling back to an explicit base/quote pair.
var ErrUnresolvableSymbol = errors.New("unresolvable symbol")

// knownQuotes are checked in order, first match wins. Ordering matters:
// BTCUSD must resolve to quote USD, ETHBTC to quote BTC.
var knownQuotes = []string{"USDT", "USD", "BUSD", "USDC", "BTC", "ETH", "BNB"}

// SplitSymbol splits a concatenated spot symbol like BTCUSDT into base and
// quote by stripping a known quote suffix.
func SplitSymbol(symbol string) (base, quote string, err error) {
	for _, q := range knownQuotes {
		if strings.HasSuffix(symbol, q) {
			return symbol[:len(symbol)-len(q)], q, nil
		}
	}
	return "", "", errors.Wrapf(ErrUnresolvableSymbol, "%s: provide base/quote explicitly", symbol)
}
