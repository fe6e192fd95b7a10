// Package scoring implements the Scoring & Selection Engine (spec.md
// §4.3): given a request and strategy, produce a deterministically
// ordered candidate list, grounded on the teacher's
// TranslateWithFallback provider-selection loop
// (internal/clients/orchestrator.go) generalized from a single
// priority-only order into four selectable modes.
package scoring

import (
	"sort"

	"github.com/tesseract-hub/translation-router/internal/registry"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// Candidate is one provider entry ordered for a single request.
type Candidate struct {
	Entry *registry.ProviderEntry
}

// AvgResponseTimeFunc looks up a provider's running average response
// time in milliseconds, as kept by the Metrics Aggregator. It reports
// false when no sample exists yet, in which case the max_response_time_ms
// soft cap does not exclude that provider.
type AvgResponseTimeFunc func(providerID string) (ms int64, ok bool)

// Order computes the candidate set per spec.md §3 (initialized,
// healthy, under max_load, supports the language pair), applies the
// strategy's soft caps, then sorts per its mode. Returns
// ErrNoProviderAvailable if nothing survives filtering. avgResponseTime
// may be nil, in which case the max_response_time_ms cap is skipped.
// costCeiling and weights come from the router's configured
// cost_ceiling_per_char/balanced_weights (spec.md §6), not a hardcoded
// default, so the balanced mode reflects whatever was configured.
func Order(providers []*registry.ProviderEntry, req types.TranslationRequest, strategy types.Strategy, costCeiling float64, weights types.BalancedWeights, avgResponseTime AvgResponseTimeFunc) ([]Candidate, error) {
	textLen := len([]rune(req.Text))

	candidates := make([]Candidate, 0, len(providers))
	for _, p := range providers {
		if !p.IsCandidate(req.SourceLang, req.TargetLang) {
			continue
		}
		if strategy.MinQuality != nil && p.QualityScore < *strategy.MinQuality {
			continue
		}
		if strategy.MaxCost != nil {
			cost := p.Adapter.EstimatedCost(textLen)
			if cost > *strategy.MaxCost {
				continue
			}
		}
		if strategy.MaxResponseTimeMs != nil && avgResponseTime != nil {
			if ms, ok := avgResponseTime(p.ID); ok && ms > *strategy.MaxResponseTimeMs {
				continue
			}
		}
		candidates = append(candidates, Candidate{Entry: p})
	}

	if len(candidates) == 0 {
		return nil, types.ErrNoProviderAvailable
	}

	sortByMode(candidates, strategy.Mode, textLen, costCeiling, weights)
	return candidates, nil
}

func sortByMode(candidates []Candidate, mode types.StrategyMode, textLen int, costCeiling float64, weights types.BalancedWeights) {
	less := func(i, j int) bool {
		a, b := candidates[i].Entry, candidates[j].Entry
		switch mode {
		case types.StrategyCost:
			ca := a.CostPerChar * float64(textLen)
			cb := b.CostPerChar * float64(textLen)
			if ca != cb {
				return ca < cb
			}
		case types.StrategyQuality:
			if a.QualityScore != b.QualityScore {
				return a.QualityScore > b.QualityScore
			}
		case types.StrategySpeed:
			la, lb := a.CurrentLoad(), b.CurrentLoad()
			if la != lb {
				return la < lb
			}
		default: // balanced
			sa := balancedScore(a, costCeiling, weights)
			sb := balancedScore(b, costCeiling, weights)
			if sa != sb {
				return sa > sb
			}
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	}
	sort.SliceStable(candidates, less)
}

func balancedScore(p *registry.ProviderEntry, costCeiling float64, weights types.BalancedWeights) float64 {
	quality := clamp01(p.QualityScore)

	var loadFrac float64
	if p.MaxLoad > 0 {
		loadFrac = float64(p.CurrentLoad()) / float64(p.MaxLoad)
	}
	speed := clamp01(1 - loadFrac)

	var cost float64
	if costCeiling > 0 {
		cost = clamp01(1 - p.CostPerChar/costCeiling)
	}

	return weights.Quality*quality + weights.Speed*speed + weights.Cost*cost
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ReorderForFallback re-sorts the untried remainder by ascending
// priority only, never re-entering Order/the Scoring Engine (spec.md
// §4.4).
func ReorderForFallback(remaining []Candidate) []Candidate {
	out := append([]Candidate(nil), remaining...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Entry, out[j].Entry
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
	return out
}
