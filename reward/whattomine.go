package reward

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const whatToMineBaseURL = "https://whattomine.com"

// whatToMineCoins maps a coin to its WhatToMine id and the hashrate (H/s)
// the site quotes estimated rewards for.
var whatToMineCoins = []struct {
	coin         CoinType
	id           int
	baseHashrate int64
}{
	{BTC, 1, 14000000000000}, // 14000 GH/s
	{ETH, 151, 84000000},     // 84.0 MH/s
	{ETC, 162, 84000000},     // 84.0 MH/s
	{XMR, 101, 2580},         // 2580 H/s
	{ZEC, 166, 870},          // 870 H/s
}

// whatToMinePayload is the part of /coins/<id>.json we read.
type whatToMinePayload struct {
	Errors           []string            `json:"errors"`
	EstimatedRewards decimal.NullDecimal `json:"estimated_rewards"`
	Timestamp        *int64              `json:"timestamp"`
}

type whatToMineProvider struct {
	catalog Catalog
}

func newWhatToMineProvider(baseURL string) *whatToMineProvider {
	if baseURL == "" {
		baseURL = whatToMineBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	catalog := make(Catalog, len(whatToMineCoins))
	for _, c := range whatToMineCoins {
		catalog[c.coin] = CoinSpec{
			Coin:         c.coin,
			BaseHashrate: decimal.NewFromInt(c.baseHashrate),
			Endpoints: []Endpoint{{
				Name: strings.ToLower(string(c.coin)) + "-coin",
				URL:  fmt.Sprintf("%s/coins/%d.json", baseURL, c.id),
			}},
		}
	}
	return &whatToMineProvider{catalog: catalog}
}

func (p *whatToMineProvider) Type() ProviderType {
	return WhatToMine
}

func (p *whatToMineProvider) Catalog() Catalog {
	return p.catalog
}

func (p *whatToMineProvider) CheckError(body []byte, endpoint Endpoint) error {
	var payload whatToMinePayload
	if err := decodeJSON(body, &payload); err != nil {
		return &Error{Kind: ParseFailure, Message: fmt.Sprintf("%s: %v", endpoint.Name, err), Err: err}
	}
	if len(payload.Errors) > 0 {
		return &Error{Kind: ProviderError, Message: payload.Errors[0]}
	}
	return nil
}

func (p *whatToMineProvider) Parse(body []byte, endpoint Endpoint, spec CoinSpec, draft *Draft) error {
	var payload whatToMinePayload
	if err := decodeJSON(body, &payload); err != nil {
		return &Error{Kind: ParseFailure, Message: fmt.Sprintf("%s: %v", endpoint.Name, err), Err: err}
	}
	if !payload.EstimatedRewards.Valid {
		return newError(ParseFailure, "%s: missing estimated_rewards", endpoint.Name)
	}
	if payload.Timestamp == nil {
		return newError(ParseFailure, "%s: missing timestamp", endpoint.Name)
	}
	draft.SetBaseHashrate(spec.BaseHashrate)
	draft.SetBaseRewardPerDay(payload.EstimatedRewards.Decimal)
	draft.SetLastUpdated(time.Unix(*payload.Timestamp, 0))
	return nil
}
