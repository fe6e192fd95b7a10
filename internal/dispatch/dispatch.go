// Package dispatch is the Dispatch & Fallback Engine (spec.md §4.4),
// grounded on the teacher's TranslateWithFallback loop
// (internal/clients/orchestrator.go) but generalized to consult the
// Scoring Engine once and fall back by priority only, per spec.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/metricsagg"
	"github.com/tesseract-hub/translation-router/internal/registry"
	"github.com/tesseract-hub/translation-router/internal/scoring"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// errAtCapacity fires when a candidate's load slot disappeared
// between scoring.Order's snapshot and this attempt (another goroutine
// raced it to max_load); the dispatch loop treats it like any other
// transient failure and moves to the next candidate.
var errAtCapacity = errors.New("dispatch: provider at max_load")

// Engine runs the translate-with-fallback algorithm over a fixed,
// already-ordered candidate list.
type Engine struct {
	metrics        *metricsagg.Aggregator
	log            *logrus.Entry
	unhealthyAfter int
	callTimeout    time.Duration
}

func New(metrics *metricsagg.Aggregator, log *logrus.Entry, unhealthyAfter int, callTimeout time.Duration) *Engine {
	return &Engine{metrics: metrics, log: log, unhealthyAfter: unhealthyAfter, callTimeout: callTimeout}
}

// Translate implements spec.md §4.4 steps 3-f over the candidate list
// handed in by the caller (already produced by scoring.Order, once).
func (e *Engine) Translate(ctx context.Context, req types.TranslationRequest, candidates []scoring.Candidate) (*types.TranslationResponse, error) {
	tried := make(map[string]struct{}, len(candidates))
	remaining := candidates
	var lastErr error

	for len(remaining) > 0 {
		cand := remaining[0]
		remaining = remaining[1:]
		entry := cand.Entry
		tried[entry.ID] = struct{}{}

		resp, err := e.attempt(ctx, entry, req)
		if err == nil {
			return resp, nil
		}

		if ctx.Err() != nil {
			// Cancellation: no metrics write, propagate as-is (spec.md §4.4).
			return nil, ctx.Err()
		}

		lastErr = err
		e.log.WithFields(logrus.Fields{"provider": entry.ID, "error": err}).Warn("dispatch attempt failed, trying next candidate")
		e.metrics.RecordFailure(ctx, entry.ID)
		if entry.RecordDispatchFailure(e.unhealthyAfter) {
			e.log.WithField("provider", entry.ID).Warn("provider crossed unhealthy threshold")
		}

		remaining = scoring.ReorderForFallback(remaining)
	}

	attempted := make([]string, 0, len(tried))
	for id := range tried {
		attempted = append(attempted, id)
	}
	return nil, &types.AllProvidersFailedError{Attempted: attempted, Last: lastErr}
}

func (e *Engine) attempt(parent context.Context, entry *registry.ProviderEntry, req types.TranslationRequest) (*types.TranslationResponse, error) {
	if !entry.TryIncrementLoad() {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, errAtCapacity)
	}
	defer entry.DecrementLoad()

	ctx := parent
	var cancel context.CancelFunc
	if e.callTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, e.callTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := entry.Adapter.Translate(ctx, req)
	if err != nil {
		return nil, err
	}

	entry.RecordDispatchSuccess()
	cost := 0.0
	if resp.Cost != nil {
		cost = *resp.Cost
	}
	elapsed := time.Since(start).Milliseconds()
	e.metrics.RecordSuccess(parent, entry.ID, elapsed, cost)

	resp.Provider = entry.ID
	resp.Cached = false
	return resp, nil
}
