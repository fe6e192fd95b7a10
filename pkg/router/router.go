// Package router is the public facade over the translation router
// (spec.md §4): construct a Router, Initialize it for a tenant, then
// call Translate. It wires the Config Store, Cache Client, Provider
// Registry, Health Monitor, Scoring Engine, Dispatch Engine, and
// Metrics Aggregator together the way the teacher's cmd/main.go wires
// its orchestrator, cache, and config packages.
package router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/cachestore"
	"github.com/tesseract-hub/translation-router/internal/configstore"
	"github.com/tesseract-hub/translation-router/internal/dispatch"
	"github.com/tesseract-hub/translation-router/internal/metricsagg"
	"github.com/tesseract-hub/translation-router/internal/registry"
	"github.com/tesseract-hub/translation-router/internal/scoring"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// healthCheckTimeout is the Health Monitor's per-provider budget for
// one check_health call (spec.md §5).
const healthCheckTimeout = 10 * time.Second

// Router is the single entry point callers use.
type Router struct {
	cfg      configstore.RouterConfig
	log      *logrus.Entry
	cache    cachestore.Cache
	registry *registry.Registry
	monitor  *registry.HealthMonitor
	metrics  *metricsagg.Aggregator
	engine   *dispatch.Engine

	initialized bool
}

// New wires the component graph. cache may be nil, in which case the
// router skips the cache-first short-circuit entirely.
func New(reg *registry.Registry, cache cachestore.Cache, cfg configstore.RouterConfig, log *logrus.Entry) *Router {
	agg := metricsagg.New(cache, log)
	return &Router{
		cfg:      cfg,
		log:      log,
		cache:    cache,
		registry: reg,
		monitor:  registry.NewHealthMonitor(reg, log, cfg.HealthCheckInterval, healthCheckTimeout),
		metrics:  agg,
		engine:   dispatch.New(agg, log, cfg.UnhealthyErrorThreshold, cfg.AdapterCallTimeout),
	}
}

// Initialize loads this tenant's credentials into the Provider
// Registry and starts the Health Monitor (spec.md §4.2). If no
// provider initialized, Translate keeps returning ErrNotInitialized.
func (r *Router) Initialize(ctx context.Context, tenantID string) error {
	if err := r.registry.Initialize(ctx, tenantID); err != nil {
		return err
	}
	r.monitor.Start(ctx)
	r.initialized = false
	for _, p := range r.registry.Providers() {
		if p.Initialized() {
			r.initialized = true
			break
		}
	}
	return nil
}

// Shutdown stops the Health Monitor and disables every provider.
// Idempotent.
func (r *Router) Shutdown() {
	r.monitor.Stop()
	r.registry.Shutdown()
}

// Translate is the single Dispatch & Fallback Engine entry point
// (spec.md §4.4), fronted by the cache-first short-circuit of §4.5.
func (r *Router) Translate(ctx context.Context, req types.TranslationRequest, strategy types.Strategy) (*types.TranslationResponse, error) {
	if !r.initialized {
		return nil, types.ErrNotInitialized
	}

	key := cachestore.TranslationKey(req.SourceLang, req.TargetLang, strategy.PreferredProvider, req.Text)

	if r.cache != nil {
		if raw, found, err := r.cache.Get(ctx, key); err != nil {
			r.log.WithError(err).Warn("cache read failed, treating as miss")
		} else if found {
			var cached types.TranslationResponse
			if err := json.Unmarshal(raw, &cached); err != nil {
				r.log.WithError(err).Warn("cached response corrupt, treating as miss")
			} else {
				cached.Cached = true
				return &cached, nil
			}
		}
	}

	providers := r.registry.Providers()
	candidates, err := scoring.Order(providers, req, strategy, r.cfg.CostCeilingPerChar, r.cfg.BalancedWeights, r.avgResponseTimeLookup(ctx))
	if err != nil {
		return nil, err
	}

	resp, err := r.engine.Translate(ctx, req, candidates)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if raw, err := json.Marshal(resp); err != nil {
			r.log.WithError(err).Warn("response encode failed, skipping cache write")
		} else if err := r.cache.Set(ctx, key, raw, r.cfg.CacheTTL); err != nil {
			r.log.WithError(err).Warn("cache write failed")
		}
	}

	return resp, nil
}

// GetProviderStats returns a point-in-time snapshot of every
// registered provider, merging live registry state with the
// persisted metrics record.
func (r *Router) GetProviderStats(ctx context.Context) []types.ProviderStats {
	providers := r.registry.Providers()
	out := make([]types.ProviderStats, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Snapshot(r.metrics.Get(ctx, p.ID)))
	}
	return out
}

func (r *Router) avgResponseTimeLookup(ctx context.Context) scoring.AvgResponseTimeFunc {
	return r.metrics.AvgResponseTimeMs(ctx)
}
