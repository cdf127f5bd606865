package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches "<amount>" with an optional BTC unit
var amountPattern = regexp.MustCompile(`^(\d+\.?\d*)(?:\s*(BTC|SAT|SATS))?$`)

var satoshi = decimal.New(1, -8)

// ParseAmount parses a user supplied bitcoin amount
// Examples:
//   - "0.001"
//   - "0.5 BTC"
//   - "150000 sats"
func ParseAmount(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(strings.ToUpper(input))

	matches := amountPattern.FindStringSubmatch(input)
	if matches == nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s'. Expected: '<amount> [BTC|sats]' (e.g., '0.001 BTC')", input)
	}

	amount, err := decimal.NewFromString(matches[1])
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': %w", matches[1], err)
	}

	if matches[2] == "SAT" || matches[2] == "SATS" {
		if !amount.IsInteger() {
			return decimal.Zero, fmt.Errorf("satoshi amounts must be whole numbers")
		}
		amount = amount.Mul(satoshi)
	}

	if !amount.Equal(amount.Truncate(8)) {
		return decimal.Zero, fmt.Errorf("amount %s has more than 8 decimal places", amount.String())
	}

	return amount, nil
}

// NormalizeCoin maps common tickers onto the coin identifiers used by charges
func NormalizeCoin(symbol string) string {
	symbol = strings.TrimSpace(strings.ToLower(symbol))

	aliases := map[string]string{
		"btc":  "bitcoin",
		"eth":  "ethereum",
		"ltc":  "litecoin",
		"bch":  "bitcoincash",
		"usd":  "usdc",
		"usdt": "usdc",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
