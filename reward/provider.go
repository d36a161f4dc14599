package reward

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderType selects a provider implementation in New.
type ProviderType string

const (
	WhatToMine ProviderType = "whattomine"
)

// ParseProviderType accepts the configured provider name.
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(s) {
	case WhatToMine, "WHAT_TO_MINE", "WhatToMine":
		return WhatToMine, nil
	default:
		return "", newError(UnsupportedInput, "unknown provider %q", s)
	}
}

// Provider knows the endpoints of a statistics source and how to read them.
type Provider interface {
	Type() ProviderType
	Catalog() Catalog
	// CheckError returns a ProviderError when body is an error payload.
	CheckError(body []byte, endpoint Endpoint) error
	// Parse adds the fields carried by body to draft.
	Parse(body []byte, endpoint Endpoint, spec CoinSpec, draft *Draft) error
}

// Draft accumulates the fields of one refresh attempt. It is only turned into
// a Baseline once every endpoint of the coin has been parsed.
type Draft struct {
	coin             CoinType
	baseHashrate     *decimal.Decimal
	baseRewardPerDay *decimal.Decimal
	lastUpdated      *time.Time
}

func newDraft(coin CoinType) *Draft {
	return &Draft{coin: coin}
}

func (d *Draft) SetBaseHashrate(v decimal.Decimal) {
	d.baseHashrate = &v
}

func (d *Draft) SetBaseRewardPerDay(v decimal.Decimal) {
	d.baseRewardPerDay = &v
}

func (d *Draft) SetLastUpdated(t time.Time) {
	d.lastUpdated = &t
}

// build checks that all fields arrived and derives the next refresh time.
func (d *Draft) build(updateInterval time.Duration) (Baseline, error) {
	switch {
	case d.baseHashrate == nil:
		return Baseline{}, newError(ParseFailure, "%s baseline is missing base hashrate", d.coin)
	case d.baseRewardPerDay == nil:
		return Baseline{}, newError(ParseFailure, "%s baseline is missing reward per day", d.coin)
	case d.lastUpdated == nil:
		return Baseline{}, newError(ParseFailure, "%s baseline is missing last update time", d.coin)
	}
	return Baseline{
		Coin:             d.coin,
		BaseHashrate:     *d.baseHashrate,
		BaseRewardPerDay: *d.baseRewardPerDay,
		LastUpdated:      *d.lastUpdated,
		NextRefreshAt:    d.lastUpdated.Add(updateInterval),
	}, nil
}
