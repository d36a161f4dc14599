package reward

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Endpoint is one named sub-request needed to assemble a baseline.
type Endpoint struct {
	Name string
	URL  string
}

// CoinSpec describes how a provider builds the baseline of one coin.
type CoinSpec struct {
	Coin         CoinType
	BaseHashrate decimal.Decimal // H/s the provider reward is quoted for
	Endpoints    []Endpoint
}

// Catalog is the static set of coins a provider supports.
type Catalog map[CoinType]CoinSpec

func (c Catalog) Spec(coin CoinType) (CoinSpec, bool) {
	spec, ok := c[coin]
	return spec, ok
}

// Coins returns the supported coins in ticker order.
func (c Catalog) Coins() []CoinType {
	coins := make([]CoinType, 0, len(c))
	for coin := range c {
		coins = append(coins, coin)
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i] < coins[j] })
	return coins
}
