package reward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const btcURL = "https://whattomine.com/coins/1.json"

// btcUpdated is the timestamp carried by btcCoinResponse.
var btcUpdated = time.Unix(1525899632, 0)

func newTestRequestor(t *testing.T, f Fetcher, opts ...Option) *Requestor {
	t.Helper()
	r, err := New(WhatToMine, append([]Option{WithFetcher(f), quietLogger()}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestProjectBitcoin(t *testing.T) {
	spy := newSpyFetcher()
	spy.answer(btcURL, btcCoinResponse)
	r := newTestRequestor(t, spy, WithEndpointsUpdate(0))

	p, err := r.Project(context.Background(), BTC, decimal.NewFromInt(14000000000000))
	require.NoError(t, err)
	assert.Equal(t, BTC, p.Coin)
	assert.Equal(t, "0.000037", p.RewardPerHour.StringFixed(6))
	assert.Equal(t, "0.000889", p.RewardPerDay.StringFixed(6))
	assert.Equal(t, "0.006223", p.RewardPerWeek.StringFixed(6))
	assert.Equal(t, "0.026670", p.RewardPerMonth.StringFixed(6))
	assert.Equal(t, "0.324485", p.RewardPerYear.StringFixed(6))
	assert.Equal(t, 1, spy.callCount())

	b, ok := r.Cache().Read(BTC)
	require.True(t, ok)
	assert.Equal(t, btcUpdated, b.LastUpdated)
	assert.Equal(t, btcUpdated, b.NextRefreshAt)

	// interval 0: always stale
	_, err = r.Project(context.Background(), BTC, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, 2, spy.callCount())
}

func TestProjectZeroIntervalIgnoresClockSkew(t *testing.T) {
	spy := newSpyFetcher()
	spy.answer(btcURL, btcCoinResponse)
	// local clock one second behind the provider timestamp
	r := newTestRequestor(t, spy, WithEndpointsUpdate(0), WithClock(fixedClock(btcUpdated.Add(-time.Second))))

	for i := 0; i < 2; i++ {
		_, err := r.Project(context.Background(), BTC, decimal.NewFromInt(1))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, spy.callCount())
}

func TestProjectUsesUnexpiredCache(t *testing.T) {
	spy := newSpyFetcher()
	spy.answer(btcURL, btcCoinResponse)
	now := btcUpdated.Add(time.Minute)
	r := newTestRequestor(t, spy, WithClock(func() time.Time { return now }))

	reported := decimal.NewFromInt(7000000000000)
	first, err := r.Project(context.Background(), BTC, reported)
	require.NoError(t, err)
	second, err := r.Project(context.Background(), BTC, reported)
	require.NoError(t, err)

	assert.Equal(t, 1, spy.callCount())
	assert.True(t, first.RewardPerDay.Equal(second.RewardPerDay))
	assert.True(t, first.RewardPerHour.Equal(second.RewardPerHour))
	assert.True(t, first.RewardPerYear.Equal(second.RewardPerYear))

	// default update is 4 minutes after the provider timestamp
	now = btcUpdated.Add(DefaultEndpointsUpdate * time.Minute)
	_, err = r.Project(context.Background(), BTC, reported)
	require.NoError(t, err)
	assert.Equal(t, 2, spy.callCount())
}

func TestProjectSeededCache(t *testing.T) {
	spy := newSpyFetcher()
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	r := newTestRequestor(t, spy, WithClock(fixedClock(now)))

	require.NoError(t, r.Cache().Commit(Baseline{
		Coin:             ZEC,
		BaseHashrate:     decimal.NewFromInt(870),
		BaseRewardPerDay: dec(t, "0.008700"),
		NextRefreshAt:    now.Add(time.Hour),
	}))

	p, b, err := r.ProjectWithBaseline(context.Background(), ZEC, decimal.NewFromInt(87))
	require.NoError(t, err)
	assert.True(t, p.RewardPerDay.Equal(dec(t, "0.00087")), p.RewardPerDay.String())
	assert.Equal(t, ZEC, b.Coin)
	assert.Equal(t, now.Add(time.Hour), b.NextRefreshAt)
	assert.Equal(t, 0, spy.callCount())
}

func TestProjectUnsupportedCoin(t *testing.T) {
	spy := newSpyFetcher()
	r := newTestRequestor(t, spy, WithEndpointsUpdate(0))

	_, err := r.Project(context.Background(), BCH, decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, UnsupportedInput, KindOf(err))
	assert.Equal(t, "BCH is not supported", err.Error())
	assert.Equal(t, 0, spy.callCount())
}

func TestProjectNegativeHashrate(t *testing.T) {
	spy := newSpyFetcher()
	r := newTestRequestor(t, spy)

	_, err := r.Project(context.Background(), BTC, decimal.NewFromInt(-1))
	assert.Equal(t, UnsupportedInput, KindOf(err))
	assert.Equal(t, 0, spy.callCount())
}

func TestProjectProviderError(t *testing.T) {
	spy := newSpyFetcher()
	spy.answer(btcURL, apiErrorResponse)
	r := newTestRequestor(t, spy, WithEndpointsUpdate(0))

	_, err := r.Project(context.Background(), BTC, decimal.Zero)
	require.Error(t, err)
	assert.Equal(t, ProviderError, KindOf(err))
	assert.Equal(t, "Could not find active coin with id 0", err.Error())
	assert.True(t, errors.Is(err, &Error{Kind: ProviderError}))

	_, ok := r.Cache().Read(BTC)
	assert.False(t, ok)
}

func TestProjectEmptyResponse(t *testing.T) {
	for name, body := range map[string]string{
		"empty object": `{}`,
		"empty body":   ``,
		"not json":     `<html>maintenance</html>`,
		"no timestamp": `{"estimated_rewards":"0.000889"}`,
		"bad reward":   `{"estimated_rewards":"n/a","timestamp":1525899632}`,
	} {
		t.Run(name, func(t *testing.T) {
			spy := newSpyFetcher()
			spy.answer(btcURL, body)
			r := newTestRequestor(t, spy, WithEndpointsUpdate(0))

			_, err := r.Project(context.Background(), BTC, decimal.Zero)
			require.Error(t, err)
			assert.Equal(t, ParseFailure, KindOf(err), err.Error())
		})
	}
}

func TestProjectDoesNotFallBackToStaleBaseline(t *testing.T) {
	spy := newSpyFetcher()
	spy.fail(btcURL, errors.New("connection reset by peer"))
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	r := newTestRequestor(t, spy, WithClock(fixedClock(now)))

	old := Baseline{
		Coin:             BTC,
		BaseHashrate:     decimal.NewFromInt(14000000000000),
		BaseRewardPerDay: dec(t, "0.0007"),
		NextRefreshAt:    now.Add(-time.Minute),
	}
	require.NoError(t, r.Cache().Commit(old))

	_, err := r.Project(context.Background(), BTC, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Equal(t, TransportFailure, KindOf(err))

	got, ok := r.Cache().Read(BTC)
	require.True(t, ok)
	assert.Equal(t, old, got)
	assert.True(t, r.Cache().IsStale(BTC, now))
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("nicehash")
	assert.Equal(t, UnsupportedInput, KindOf(err))
}

func TestRequestorCoins(t *testing.T) {
	r := newTestRequestor(t, newSpyFetcher())
	assert.Equal(t, WhatToMine, r.Type())
	assert.Equal(t, []CoinType{BTC, ETC, ETH, XMR, ZEC}, r.Coins())
}

func TestProjectRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	spy := newSpyFetcher()
	spy.answer(btcURL, btcCoinResponse)
	spy.answer("https://whattomine.com/coins/151.json", apiErrorResponse)
	r := newTestRequestor(t, spy, WithEndpointsUpdate(0), WithMetrics(m))

	_, err = r.Project(context.Background(), BTC, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = r.Project(context.Background(), ETH, decimal.NewFromInt(1))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("whattomine", "BTC", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("whattomine", "ETH", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("whattomine", "eth-coin", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.projections.WithLabelValues("whattomine", "BTC")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.projections.WithLabelValues("whattomine", "ETH")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestRefreshDedupeSharesOneFetch(t *testing.T) {
	spy := newSpyFetcher()
	spy.answer(btcURL, btcCoinResponse)
	spy.block = make(chan struct{})
	r := newTestRequestor(t, spy, WithRefreshDedupe(true), WithClock(fixedClock(btcUpdated)))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Projection, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Project(context.Background(), BTC, decimal.NewFromInt(14000000000000))
		}(i)
	}

	require.Eventually(t, func() bool { return spy.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(spy.block)
	wg.Wait()

	assert.Equal(t, 1, spy.callCount())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].RewardPerDay.Equal(dec(t, "0.000889")))
	}
}
