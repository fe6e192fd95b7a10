package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/adapter"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// ClaudeAdapter wraps a quality-tier, context-aware, glossary-aware
// upstream backend reached over a keyed HTTP API. Grounded on the
// cloud-API-with-key shape of the teacher's GoogleTranslateClient,
// enriched with the context and glossary handling spec.md adds.
type ClaudeAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry

	mu          sync.RWMutex
	apiKey      string
	initialized bool
}

// NewClaudeAdapter creates an uninitialized Claude-backed adapter.
func NewClaudeAdapter(baseURL string, logger *logrus.Entry) *ClaudeAdapter {
	return &ClaudeAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (a *ClaudeAdapter) ID() string { return "claude" }

func (a *ClaudeAdapter) Initialize(_ context.Context, credential string) error {
	if credential == "" {
		return types.NewAdapterError(types.KindConfigError, fmt.Errorf("claude: empty credential"))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKey = credential
	a.initialized = true
	return nil
}

func (a *ClaudeAdapter) isInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

func (a *ClaudeAdapter) key() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey
}

func (a *ClaudeAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		SupportsContext:  true,
		SupportsBatch:    false,
		SupportsGlossary: true,
		MaxTextLength:    100000,
		Pricing:          &types.Pricing{CostPerChar: 4e-5},
	}
}

func (a *ClaudeAdapter) EstimatedCost(charCount int) float64 {
	if charCount <= 0 {
		return 0
	}
	return float64(charCount) * a.Capabilities().Pricing.CostPerChar
}

func (a *ClaudeAdapter) SupportsLanguagePair(_, _ string) bool {
	// Claude-style backends are language-general; empty
	// SupportedLanguages means "all" (spec.md §4.1).
	return true
}

type claudeTranslateRequest struct {
	Text       string   `json:"text"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
	Context    []string `json:"context,omitempty"`
}

type claudeTranslateResponse struct {
	TranslatedText     string  `json:"translated_text"`
	DetectedSourceLang string  `json:"detected_source_lang,omitempty"`
	Confidence         float64 `json:"confidence,omitempty"`
}

func (a *ClaudeAdapter) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
	start := time.Now()

	if !a.isInitialized() {
		return nil, types.NewAdapterError(types.KindNotInitialized, fmt.Errorf("claude: not initialized"))
	}

	text := req.Text
	if len(req.Glossary) > 0 {
		text = adapter.BracketGlossary(text, req.Glossary)
	}

	turns := make([]string, 0, len(req.Context))
	for _, t := range req.Context {
		turns = append(turns, t.Role+": "+t.Text)
	}

	body, err := json.Marshal(claudeTranslateRequest{
		Text:       text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Context:    turns,
	})
	if err != nil {
		return nil, types.NewAdapterError(types.KindInvalidRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/translate", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAdapterError(types.KindInvalidRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.key())

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewAdapterError(types.KindTimeout, err)
		}
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, types.NewAdapterError(types.KindQuotaExceeded, fmt.Errorf("claude: rate limited"))
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, fmt.Errorf("claude: status %d: %s", resp.StatusCode, raw))
	}

	var out claudeTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, err)
	}

	translated := out.TranslatedText
	if len(req.Glossary) > 0 {
		translated = adapter.StripGlossary(translated)
	}

	resolvedSource := req.SourceLang
	var detected *string
	if req.SourceLang == types.AutoLanguage || req.SourceLang == "" {
		d := out.DetectedSourceLang
		if d == "" {
			d = "en"
		}
		resolvedSource = d
		detected = &d
	}

	var confidence *float64
	if out.Confidence > 0 {
		c := out.Confidence
		confidence = &c
	}

	return &types.TranslationResponse{
		TranslatedText:     translated,
		SourceLang:         resolvedSource,
		TargetLang:         req.TargetLang,
		Provider:           a.ID(),
		Cached:             false,
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		Confidence:         confidence,
		DetectedSourceLang: detected,
	}, nil
}

func (a *ClaudeAdapter) DetectLanguage(ctx context.Context, text string) types.DetectionResult {
	if !a.isInitialized() || text == "" {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/detect", bytes.NewReader(body))
	if err != nil {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.key())

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.logger.WithError(err).Debug("claude: detect request failed")
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	var out struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Language == "" {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	return types.DetectionResult{Language: out.Language, Confidence: out.Confidence}
}

func (a *ClaudeAdapter) CheckHealth(ctx context.Context) bool {
	if !a.isInitialized() {
		return false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.key())

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

var _ adapter.Adapter = (*ClaudeAdapter)(nil)
