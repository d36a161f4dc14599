package reward

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// Baseline is the provider reference a coin's rewards are scaled from.
// Values are replaced whole on each refresh and never modified in place.
type Baseline struct {
	Coin             CoinType
	BaseHashrate     decimal.Decimal // H/s
	BaseRewardPerDay decimal.Decimal
	LastUpdated      time.Time // as reported by the provider
	NextRefreshAt    time.Time
}

// Calculator builds the calculator for this baseline.
func (b Baseline) Calculator() (*Calculator, error) {
	return NewCalculator(b.Coin, b.BaseHashrate, b.BaseRewardPerDay)
}

// BaselineCache maps a coin to its last committed baseline. Entries never
// expire; staleness is decided from NextRefreshAt.
type BaselineCache struct {
	items *cache.Cache
}

func NewBaselineCache() *BaselineCache {
	return &BaselineCache{
		// no default expiration and no janitor
		items: cache.New(cache.NoExpiration, 0),
	}
}

// IsStale reports whether coin has no baseline or its refresh time has come.
func (c *BaselineCache) IsStale(coin CoinType, now time.Time) bool {
	return !now.Before(c.NextRefresh(coin))
}

// NextRefresh returns the zero time for a coin that was never refreshed.
func (c *BaselineCache) NextRefresh(coin CoinType) time.Time {
	b, ok := c.Read(coin)
	if !ok {
		return time.Time{}
	}
	return b.NextRefreshAt
}

func (c *BaselineCache) Read(coin CoinType) (Baseline, bool) {
	obj, found := c.items.Get(string(coin))
	if !found {
		return Baseline{}, false
	}
	return obj.(Baseline), true
}

// Commit replaces the baseline of b.Coin. A baseline that cannot be used for
// calculation is rejected and the previous entry is kept.
func (c *BaselineCache) Commit(b Baseline) error {
	if _, err := b.Calculator(); err != nil {
		return err
	}
	c.items.Set(string(b.Coin), b, cache.NoExpiration)
	return nil
}
