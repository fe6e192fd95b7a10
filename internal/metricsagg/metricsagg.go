// Package metricsagg is the Metrics Aggregator (spec.md §4.6): it
// keeps a per-provider running total in the cache and mirrors each
// dispatch outcome onto an additive Prometheus counter (requests by
// provider and outcome) and a response-time histogram; it exports no
// gauges. Grounded on the teacher's
// recordSuccess/recordFailure bookkeeping
// (internal/clients/orchestrator.go) but persisted externally instead
// of in an in-process map, so it survives process restarts the way
// the Cache Client does for translations.
package metricsagg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/cachestore"
	"github.com/tesseract-hub/translation-router/internal/types"
)

const ttl = time.Hour

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_router_provider_requests_total",
			Help: "Total dispatch attempts per provider.",
		},
		[]string{"provider", "outcome"},
	)
	responseTimeMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_router_provider_response_time_ms",
			Help:    "Adapter response time in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, responseTimeMs)
}

// Aggregator reads/writes the provider:<id>:metrics cache record.
type Aggregator struct {
	cache cachestore.Cache
	log   *logrus.Entry
}

func New(cache cachestore.Cache, log *logrus.Entry) *Aggregator {
	return &Aggregator{cache: cache, log: log}
}

// RecordSuccess folds a successful dispatch into the provider's
// metrics record (spec.md §4.6). Cache failures are logged and never
// raised.
func (a *Aggregator) RecordSuccess(ctx context.Context, providerID string, processingTimeMs int64, cost float64) {
	m := a.load(ctx, providerID)
	m.TotalRequests++
	m.SuccessfulRequests++
	m.TotalResponseTimeMs += processingTimeMs
	m.TotalCost += cost
	a.store(ctx, providerID, m)

	requestsTotal.WithLabelValues(providerID, "success").Inc()
	responseTimeMs.WithLabelValues(providerID).Observe(float64(processingTimeMs))
}

// RecordFailure folds a failed dispatch attempt: only total_requests
// is incremented (spec.md §4.6).
func (a *Aggregator) RecordFailure(ctx context.Context, providerID string) {
	m := a.load(ctx, providerID)
	m.TotalRequests++
	a.store(ctx, providerID, m)

	requestsTotal.WithLabelValues(providerID, "failure").Inc()
}

// Get returns the current metrics record, or zero if absent.
func (a *Aggregator) Get(ctx context.Context, providerID string) types.Metrics {
	return a.load(ctx, providerID)
}

// AvgResponseTimeMs adapts Get into scoring.AvgResponseTimeFunc.
func (a *Aggregator) AvgResponseTimeMs(ctx context.Context) func(string) (int64, bool) {
	return func(providerID string) (int64, bool) {
		m := a.load(ctx, providerID)
		if m.SuccessfulRequests == 0 {
			return 0, false
		}
		return m.TotalResponseTimeMs / m.SuccessfulRequests, true
	}
}

func (a *Aggregator) load(ctx context.Context, providerID string) types.Metrics {
	if a.cache == nil {
		return types.Metrics{}
	}
	raw, found, err := a.cache.Get(ctx, cachestore.MetricsKey(providerID))
	if err != nil {
		a.log.WithError(err).WithField("provider", providerID).Warn("metrics read failed, treating as zero")
		return types.Metrics{}
	}
	if !found {
		return types.Metrics{}
	}
	var m types.Metrics
	if err := json.Unmarshal(raw, &m); err != nil {
		a.log.WithError(err).WithField("provider", providerID).Warn("metrics record corrupt, treating as zero")
		return types.Metrics{}
	}
	return m
}

func (a *Aggregator) store(ctx context.Context, providerID string, m types.Metrics) {
	if a.cache == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		a.log.WithError(err).WithField("provider", providerID).Warn("metrics encode failed")
		return
	}
	if err := a.cache.Set(ctx, cachestore.MetricsKey(providerID), raw, ttl); err != nil {
		a.log.WithError(err).WithField("provider", providerID).Warn("metrics write failed")
	}
}
