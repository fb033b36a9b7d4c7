package entity

import "fmt"

// Pair is a trading pair: From is the base asset, To is the quote asset.
type Pair struct {
	From string
	To   string
}

func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated exchange symbol, e.g. BTCUSDT.
func (p Pair) Symbol() string {
	return p.From + p.To
}
