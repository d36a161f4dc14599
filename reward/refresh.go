package reward

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hako/durafmt"
	"golang.org/x/sync/singleflight"

	"CoinRewardData/logger"
)

// refresher fetches, validates and commits a new baseline for one coin.
type refresher struct {
	provider       Provider
	fetcher        Fetcher
	cache          *BaselineCache
	updateInterval time.Duration
	metrics        *Metrics
	log            *logger.Entry
	now            func() time.Time

	// nil unless in-flight de-duplication is enabled
	group *singleflight.Group
}

// refresh returns the committed baseline or the error that aborted the
// attempt. On error the cache is left as it was.
func (r *refresher) refresh(ctx context.Context, spec CoinSpec) (Baseline, error) {
	if r.group == nil {
		return r.attempt(ctx, spec)
	}
	v, err, shared := r.group.Do(string(spec.Coin), func() (interface{}, error) {
		// a flight that finished since the caller's staleness check already committed
		if b, ok := r.cache.Read(spec.Coin); ok && !r.stale(spec.Coin) {
			return b, nil
		}
		return r.attempt(ctx, spec)
	})
	if shared {
		r.log.WithFields(logger.Fields{"coin": spec.Coin}).Debug("joined in-flight refresh")
	}
	if err != nil {
		return Baseline{}, err
	}
	return v.(Baseline), nil
}

// stale reports whether coin needs a refresh. A zero interval always does.
func (r *refresher) stale(coin CoinType) bool {
	return r.updateInterval <= 0 || r.cache.IsStale(coin, r.now())
}

func (r *refresher) attempt(ctx context.Context, spec CoinSpec) (b Baseline, err error) {
	log := r.log.WithFields(logger.Fields{
		"coin":    spec.Coin,
		"attempt": uuid.NewString(),
	})
	log.Debug("refreshing baseline")
	defer func() {
		r.metrics.refreshed(r.provider.Type(), spec.Coin, err)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"kind": KindOf(err).String()}).Warn("baseline refresh failed")
		}
	}()

	draft := newDraft(spec.Coin)
	for _, endpoint := range spec.Endpoints {
		if err := r.fetchInto(ctx, endpoint, spec, draft); err != nil {
			return Baseline{}, err
		}
	}

	b, err = draft.build(r.updateInterval)
	if err != nil {
		return Baseline{}, err
	}
	if err := r.cache.Commit(b); err != nil {
		return Baseline{}, err
	}

	log.WithFields(logger.Fields{
		"base_hashrate":       b.BaseHashrate.String(),
		"base_reward_per_day": b.BaseRewardPerDay.String(),
		"next_refresh":        durafmt.Parse(b.NextRefreshAt.Sub(r.now())).LimitFirstN(2).String(),
	}).Info("baseline committed")
	return b, nil
}

func (r *refresher) fetchInto(ctx context.Context, endpoint Endpoint, spec CoinSpec, draft *Draft) (err error) {
	defer func() {
		r.metrics.fetched(r.provider.Type(), endpoint.Name, err)
	}()
	body, err := r.fetcher.Fetch(ctx, endpoint.URL)
	if err != nil {
		return classify(TransportFailure, err)
	}
	if err := r.provider.CheckError(body, endpoint); err != nil {
		return classify(ProviderError, err)
	}
	if err := r.provider.Parse(body, endpoint, spec, draft); err != nil {
		return classify(ParseFailure, err)
	}
	return nil
}
