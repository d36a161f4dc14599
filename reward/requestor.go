package reward

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"CoinRewardData/logger"
)

// DefaultEndpointsUpdate is how many minutes after the provider's own update a
// baseline is considered stale.
const DefaultEndpointsUpdate = 4

// Requestor projects coin rewards from a provider baseline, refreshing the
// baseline on demand when it is stale.
type Requestor struct {
	provider  Provider
	cache     *BaselineCache
	refresher *refresher
	metrics   *Metrics
	log       *logger.Entry
	now       func() time.Time
}

type options struct {
	httpClient      *http.Client
	fetcher         Fetcher
	retries         int
	endpointsUpdate int
	baseURL         string
	cache           *BaselineCache
	metrics         *Metrics
	log             *logger.Log
	dedupe          bool
	now             func() time.Time
}

// Option customises New and NewRequestor.
type Option func(*options)

// WithHTTPClient sets the client used by the default HTTP fetcher.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithFetcher replaces the HTTP transport.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithRetries sets how often the HTTP fetcher retries 5xx and network errors.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithEndpointsUpdate sets the update interval in minutes. Zero makes every
// call refresh, even when the provider timestamp is ahead of the local clock.
func WithEndpointsUpdate(minutes int) Option {
	return func(o *options) { o.endpointsUpdate = minutes }
}

// WithBaseURL points the provider at another host, e.g. a test server.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithCache shares a baseline cache between requestors.
func WithCache(c *BaselineCache) Option {
	return func(o *options) { o.cache = c }
}

// WithMetrics counts refreshes, fetches and projections on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger replaces the global logger.
func WithLogger(l *logger.Log) Option {
	return func(o *options) { o.log = l }
}

// WithRefreshDedupe makes concurrent callers of a stale coin share one
// refresh instead of each fetching.
func WithRefreshDedupe(enabled bool) Option {
	return func(o *options) { o.dedupe = enabled }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates the requestor of the given provider type.
func New(t ProviderType, opts ...Option) (*Requestor, error) {
	o := buildOptions(opts)
	switch t {
	case WhatToMine:
		return newRequestor(newWhatToMineProvider(o.baseURL), o), nil
	default:
		return nil, newError(UnsupportedInput, "unknown provider %q", t)
	}
}

// NewRequestor creates a requestor for a custom provider.
func NewRequestor(p Provider, opts ...Option) *Requestor {
	return newRequestor(p, buildOptions(opts))
}

func buildOptions(opts []Option) options {
	o := options{endpointsUpdate: DefaultEndpointsUpdate}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = NewBaselineCache()
	}
	if o.fetcher == nil {
		o.fetcher = NewHTTPFetcher(o.httpClient, o.retries)
	}
	if o.log == nil {
		o.log = logger.GetLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func newRequestor(p Provider, o options) *Requestor {
	log := o.log.WithComponent("reward").WithFields(logger.Fields{"provider": p.Type()})
	r := &refresher{
		provider:       p,
		fetcher:        o.fetcher,
		cache:          o.cache,
		updateInterval: time.Duration(o.endpointsUpdate) * time.Minute,
		metrics:        o.metrics,
		log:            log,
		now:            o.now,
	}
	if o.dedupe {
		r.group = &singleflight.Group{}
	}
	return &Requestor{
		provider:  p,
		cache:     o.cache,
		refresher: r,
		metrics:   o.metrics,
		log:       log,
		now:       o.now,
	}
}

// Project returns the estimated rewards of coin for reportedHashrate (H/s).
// A stale baseline is refreshed first; if that fails the error is returned
// and no stale value is used.
func (r *Requestor) Project(ctx context.Context, coin CoinType, reportedHashrate decimal.Decimal) (Projection, error) {
	p, _, err := r.ProjectWithBaseline(ctx, coin, reportedHashrate)
	return p, err
}

// ProjectWithBaseline is Project that also returns the baseline the
// projection was computed from.
func (r *Requestor) ProjectWithBaseline(ctx context.Context, coin CoinType, reportedHashrate decimal.Decimal) (Projection, Baseline, error) {
	spec, ok := r.provider.Catalog().Spec(coin)
	if !ok {
		return Projection{}, Baseline{}, newError(UnsupportedInput, "%s is not supported", coin)
	}
	if reportedHashrate.IsNegative() {
		return Projection{}, Baseline{}, newError(UnsupportedInput, "reported hashrate must not be negative, got %s", reportedHashrate)
	}

	if r.refresher.stale(coin) {
		if _, err := r.refresher.refresh(ctx, spec); err != nil {
			return Projection{}, Baseline{}, err
		}
	}

	b, ok := r.cache.Read(coin)
	if !ok {
		return Projection{}, Baseline{}, newError(PreconditionViolation, "%s has no baseline after refresh", coin)
	}
	calc, err := b.Calculator()
	if err != nil {
		return Projection{}, Baseline{}, err
	}
	p, err := calc.Calculate(reportedHashrate)
	if err != nil {
		return Projection{}, Baseline{}, err
	}
	r.metrics.projected(r.provider.Type(), coin)
	return p, b, nil
}

// Type returns the provider type.
func (r *Requestor) Type() ProviderType {
	return r.provider.Type()
}

// Coins lists the coins of the provider catalog.
func (r *Requestor) Coins() []CoinType {
	return r.provider.Catalog().Coins()
}

// Cache exposes the baseline cache so callers can seed or inspect it.
func (r *Requestor) Cache() *BaselineCache {
	return r.cache
}
