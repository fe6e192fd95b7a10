// Package registry owns the set of Adapters plus per-provider runtime
// state, and runs the periodic background Health Monitor (spec.md
// §4.2, §4.7).
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tesseract-hub/translation-router/internal/adapter"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// LanguageSupport is either "all" (sentinel) or an explicit ISO-639-1
// set (spec.md §3).
type LanguageSupport struct {
	All bool
	Set map[string]struct{}
}

func (l LanguageSupport) supports(code string) bool {
	if l.All || len(l.Set) == 0 {
		return true
	}
	_, ok := l.Set[code]
	return ok
}

// ProviderEntry is one backend plus its live health/load state
// (spec.md §3). current_load is an atomic counter; healthy,
// last_health_check, and the error count sit behind a mutex because
// they transition together (spec.md §9).
type ProviderEntry struct {
	ID              string
	Adapter         adapter.Adapter
	Priority        int
	CostPerChar     float64
	QualityScore    float64
	Languages       LanguageSupport
	MaxLoad         int32

	currentLoad int32 // atomic

	mu              sync.Mutex
	healthy         bool
	initialized     bool
	state           types.ProviderState
	lastHealthCheck time.Time
	errorCount      int // consecutive dispatch failures
}

// NewProviderEntry constructs an Uninitialized provider entry with
// hard-coded defaults, as the Registry does at construction time
// (spec.md §4.2).
func NewProviderEntry(id string, a adapter.Adapter, priority int, costPerChar, qualityScore float64, languages LanguageSupport, maxLoad int32) *ProviderEntry {
	return &ProviderEntry{
		ID:           id,
		Adapter:      a,
		Priority:     priority,
		CostPerChar:  costPerChar,
		QualityScore: qualityScore,
		Languages:    languages,
		MaxLoad:      maxLoad,
		state:        types.StateUninitialized,
	}
}

// CurrentLoad reads the atomic load counter.
func (p *ProviderEntry) CurrentLoad() int32 {
	return atomic.LoadInt32(&p.currentLoad)
}

// TryIncrementLoad atomically reserves one concurrent-call slot,
// returning false if the provider is already at MaxLoad (spec.md §3:
// 0 <= current_load <= max_load).
func (p *ProviderEntry) TryIncrementLoad() bool {
	for {
		cur := atomic.LoadInt32(&p.currentLoad)
		if cur >= p.MaxLoad {
			return false
		}
		if atomic.CompareAndSwapInt32(&p.currentLoad, cur, cur+1) {
			return true
		}
	}
}

// DecrementLoad releases a slot reserved by TryIncrementLoad, never
// going below zero (spec.md §4.4d).
func (p *ProviderEntry) DecrementLoad() {
	for {
		cur := atomic.LoadInt32(&p.currentLoad)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&p.currentLoad, cur, cur-1) {
			return
		}
	}
}

func (p *ProviderEntry) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

func (p *ProviderEntry) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthy
}

func (p *ProviderEntry) State() types.ProviderState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ProviderEntry) LastHealthCheck() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHealthCheck
}

// MarkInitialized transitions Uninitialized -> Healthy on a
// successful Initialize call (spec.md §4.7).
func (p *ProviderEntry) MarkInitialized() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initialized = true
	p.healthy = true
	p.state = types.StateHealthy
	p.lastHealthCheck = time.Now()
}

// MarkDisabled is the terminal transition on registry shutdown
// (spec.md §4.7), any-state -> Disabled.
func (p *ProviderEntry) MarkDisabled() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = types.StateDisabled
	p.healthy = false
}

// ApplyHealthCheck applies the result of a check_health call: a
// single success flips Unhealthy -> Healthy; a failure flips
// Healthy -> Unhealthy (spec.md §4.7). Disabled providers are
// untouched. Returns true if the healthy flag changed.
func (p *ProviderEntry) ApplyHealthCheck(ok bool) (changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == types.StateDisabled {
		return false
	}
	p.lastHealthCheck = time.Now()

	was := p.healthy
	p.healthy = ok
	if ok {
		p.errorCount = 0
		p.state = types.StateHealthy
	} else {
		p.state = types.StateUnhealthy
	}
	return was != ok
}

// RecordDispatchSuccess resets the consecutive-failure counter and
// restores Healthy (spec.md §4.4e).
func (p *ProviderEntry) RecordDispatchSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorCount = 0
	if p.state != types.StateDisabled {
		p.healthy = true
		p.state = types.StateHealthy
	}
}

// RecordDispatchFailure increments the consecutive-failure counter
// and, once it crosses threshold, marks the provider Unhealthy
// (spec.md §4.4f, §4.7). Returns true if this call crossed the
// threshold.
func (p *ProviderEntry) RecordDispatchFailure(threshold int) (crossed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errorCount++
	if p.errorCount >= threshold && p.state != types.StateDisabled {
		if p.healthy {
			crossed = true
		}
		p.healthy = false
		p.state = types.StateUnhealthy
	}
	return crossed
}

// IsCandidate reports whether the provider passes spec.md §3's
// selection filter for this language pair.
func (p *ProviderEntry) IsCandidate(sourceLang, targetLang string) bool {
	if !p.Initialized() || !p.Healthy() {
		return false
	}
	if p.CurrentLoad() >= p.MaxLoad {
		return false
	}
	sourceOK := sourceLang == "" || sourceLang == types.AutoLanguage || p.Languages.supports(sourceLang)
	return p.Adapter.SupportsLanguagePair(sourceLang, targetLang) && sourceOK && p.Languages.supports(targetLang)
}

// Snapshot renders the stats view for GetProviderStats, merging in
// the externally-supplied metrics record.
func (p *ProviderEntry) Snapshot(m types.Metrics) types.ProviderStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return types.ProviderStats{
		ID:              p.ID,
		State:           p.state,
		Healthy:         p.healthy,
		Initialized:     p.initialized,
		CurrentLoad:     p.CurrentLoad(),
		MaxLoad:         p.MaxLoad,
		Priority:        p.Priority,
		CostPerChar:     p.CostPerChar,
		QualityScore:    p.QualityScore,
		LastHealthCheck: p.lastHealthCheck,
		Metrics:         m,
	}
}
