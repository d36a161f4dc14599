package reward

import (
	"strings"
)

// CoinType identifies a coin by its ticker.
type CoinType string

const (
	BTC CoinType = "BTC"
	BCH CoinType = "BCH"
	ETH CoinType = "ETH"
	ETC CoinType = "ETC"
	XMR CoinType = "XMR"
	ZEC CoinType = "ZEC"
)

var knownCoins = []CoinType{BTC, BCH, ETH, ETC, XMR, ZEC}

// ParseCoinType accepts a ticker in any case.
func ParseCoinType(s string) (CoinType, error) {
	ticker := CoinType(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range knownCoins {
		if c == ticker {
			return c, nil
		}
	}
	return "", newError(UnsupportedInput, "unknown coin %q", s)
}

func (c CoinType) String() string {
	return string(c)
}
