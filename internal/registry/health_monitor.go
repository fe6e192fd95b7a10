package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tesseract-hub/translation-router/internal/types"
)

var errUnhealthyRetry = errors.New("registry: provider still unhealthy")

// HealthMonitor is the periodic background task that calls
// check_health on every provider (spec.md §4.2). It is grounded on
// the teacher's RefreshHealth plus its per-provider failure-backoff
// shape (google_translate.go/libretranslate.go), fanned out
// concurrently with errgroup instead of the teacher's sequential loop
// because the registry here can hold an arbitrary provider count.
type HealthMonitor struct {
	registry *Registry
	log      *logrus.Entry
	interval time.Duration
	timeout  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewHealthMonitor(r *Registry, log *logrus.Entry, interval, perProviderTimeout time.Duration) *HealthMonitor {
	return &HealthMonitor{
		registry: r,
		log:      log,
		interval: interval,
		timeout:  perProviderTimeout,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the fixed-period tick loop until Stop is called. It also
// runs a lighter-weight backoff-based recheck of currently-unhealthy
// providers between ticks, so a recovered provider can rejoin
// candidacy sooner than the next full tick (additive to, not a
// replacement for, the fixed period).
func (m *HealthMonitor) Start(ctx context.Context) {
	go func() {
		defer close(m.doneCh)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		recheck := time.NewTicker(m.interval / 4)
		defer recheck.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.checkAll(ctx)
			case <-recheck.C:
				m.recheckUnhealthy(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and blocks until it has. Safe to call
// more than once; only the first call has effect.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	<-m.doneCh
}

func (m *HealthMonitor) checkAll(parent context.Context) {
	entries := m.registry.Providers()

	g, ctx := errgroup.WithContext(parent)
	for _, entry := range entries {
		entry := entry
		if entry.State() == types.StateDisabled {
			continue
		}
		g.Go(func() error {
			m.checkOne(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *HealthMonitor) checkOne(parent context.Context, entry *ProviderEntry) {
	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()

	ok := entry.Adapter.CheckHealth(ctx)
	if entry.ApplyHealthCheck(ok) {
		m.log.WithFields(logrus.Fields{
			"provider": entry.ID,
			"healthy":  ok,
		}).Info("provider health transitioned")
	}
}

// recheckUnhealthy applies a short exponential backoff per provider so
// an unhealthy provider isn't hammered every quarter-tick, while still
// giving it a chance to recover before the next full tick.
func (m *HealthMonitor) recheckUnhealthy(parent context.Context) {
	for _, entry := range m.registry.Providers() {
		if entry.State() != types.StateUnhealthy {
			continue
		}
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 5 * time.Second
		b.MaxInterval = m.interval
		b.MaxElapsedTime = m.interval

		entry := entry
		_ = backoff.Retry(func() error {
			ctx, cancel := context.WithTimeout(parent, m.timeout)
			defer cancel()
			if entry.Adapter.CheckHealth(ctx) {
				if entry.ApplyHealthCheck(true) {
					m.log.WithField("provider", entry.ID).Info("provider recovered early via backoff recheck")
				}
				return nil
			}
			return errUnhealthyRetry
		}, b)
	}
}
