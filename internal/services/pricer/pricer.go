package pricer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperledger/internal/entity"
)

// Pricer fetches the latest trade price for a pair on a single venue.
type Pricer interface {
	GetPrice(ctx context.Context, pair entity.Pair) (decimal.Decimal, error)
}

// Registry dispatches price lookups to the venue-specific pricer.
// Exchange names are matched case-insensitively.
type Registry struct {
	pricers map[string]Pricer
}

func NewRegistry() *Registry {
	return &Registry{pricers: make(map[string]Pricer)}
}

func (r *Registry) Register(exchange string, p Pricer) {
	r.pricers[strings.ToLower(exchange)] = p
}

// GetPrice returns the latest price of pair on the given exchange.
func (r *Registry) GetPrice(ctx context.Context, exchange string, pair entity.Pair) (decimal.Decimal, error) {
	p, ok := r.pricers[strings.ToLower(exchange)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no pricer registered for exchange %q", exchange)
	}
	return p.GetPrice(ctx, pair)
}
