package ledger

import (
	"strconv"
	"strings"

	"github.com/vadiminshakov/paperledger/internal/entity"
)

// Order schemas differ between exchanges (avg_price vs price, filled_quantity
// vs quantity, ...). Each field is resolved through an ordered alias list,
// first present key wins.
var (
	symbolAliases     = []string{"symbol", "Symbol"}
	sideAliases       = []string{"side", "Side"}
	priceAliases      = []string{"avg_price", "avgPrice", "price", "Price"}
	quantityAliases   = []string{"filled_quantity", "fillQuantity", "quantity"}
	feeAliases        = []string{"fee", "Fee"}
	sessionKeyAliases = []string{"session_key", "SessionKey"}
	exchangeAliases   = []string{"exchange", "Exchange"}
)

func normalizeOrder(fields map[string]any) entity.Order {
	return entity.Order{
		Symbol:   firstString(fields, symbolAliases),
		Side:     strings.ToUpper(firstString(fields, sideAliases)),
		Price:    firstFloat(fields, priceAliases),
		Quantity: firstFloat(fields, quantityAliases),
		Fee:      firstFloat(fields, feeAliases),
	}
}

func firstString(fields map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// firstFloat resolves the first alias present and coerces it to float64.
// Numbers arrive as float64 from encoding/json, but some schemas serialize
// amounts as strings, so both are accepted. Unparseable values count as 0.
func firstFloat(fields map[string]any, aliases []string) float64 {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			if val != 0 {
				return val
			}
		case string:
			if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed != 0 {
				return parsed
			}
		}
	}
	return 0
}
