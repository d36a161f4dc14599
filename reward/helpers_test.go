package reward

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"CoinRewardData/logger"
)

const btcCoinResponse = `{
  "id":1,
  "name":"Bitcoin",
  "tag":"BTC",
  "algorithm":"SHA-256",
  "block_time":"564.0",
  "block_reward":12.7031,
  "last_block":521964,
  "difficulty":4022059196164.0,
  "nethash":30628745939894379432,
  "exchange_rate":9259.8,
  "exchange_rate_curr":"BTC",
  "market_cap":"$157,643,807,713",
  "pool_fee":"0.000000",
  "estimated_rewards":"0.000889",
  "btc_revenue":"0.00088949",
  "revenue":"$8.24",
  "cost":"$3.29",
  "profit":"$4.95",
  "status":"Active",
  "lagging":false,
  "timestamp":1525899632
}`

const apiErrorResponse = `{
  "errors":[
    "Could not find active coin with id 0"
  ]
}`

// spyFetcher answers from a map of url -> response and records every call.
type spyFetcher struct {
	mu        sync.Mutex
	responses map[string]spyResponse
	calls     []string
	// block, when set, is waited on before answering
	block chan struct{}
}

type spyResponse struct {
	body []byte
	err  error
}

func newSpyFetcher() *spyFetcher {
	return &spyFetcher{responses: make(map[string]spyResponse)}
}

func (s *spyFetcher) answer(url string, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[url] = spyResponse{body: []byte(body)}
}

func (s *spyFetcher) fail(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[url] = spyResponse{err: err}
}

func (s *spyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	resp, ok := s.responses[url]
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, newError(TransportFailure, "HTTP error: 404 Not Found")
	}
	return resp.body, resp.err
}

func (s *spyFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func quietLogger() Option {
	return WithLogger(logger.Discard())
}
