package reward

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics counts refreshes, fetches and projections.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	projections *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coinreward",
			Name:      "refresh_total",
			Help:      "Baseline refresh attempts by result.",
		}, []string{"provider", "coin", "result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coinreward",
			Name:      "fetch_total",
			Help:      "Provider endpoint fetches by result.",
		}, []string{"provider", "endpoint", "result"}),
		projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coinreward",
			Name:      "projection_total",
			Help:      "Projections served.",
		}, []string{"provider", "coin"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.refreshes, m.fetches, m.projections} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func resultLabel(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}

func (m *Metrics) refreshed(provider ProviderType, coin CoinType, err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(string(provider), string(coin), resultLabel(err)).Inc()
}

func (m *Metrics) fetched(provider ProviderType, endpoint string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(string(provider), endpoint, resultLabel(err)).Inc()
}

func (m *Metrics) projected(provider ProviderType, coin CoinType) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(string(provider), string(coin)).Inc()
}
