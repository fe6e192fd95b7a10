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

// GPTAdapter is a balanced-tier, batch-capable cloud backend, same
// keyed-HTTP shape as ClaudeAdapter with different pricing/quality
// constants and native batch support.
type GPTAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry

	mu          sync.RWMutex
	apiKey      string
	initialized bool
}

func NewGPTAdapter(baseURL string, logger *logrus.Entry) *GPTAdapter {
	return &GPTAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (a *GPTAdapter) ID() string { return "gpt" }

func (a *GPTAdapter) Initialize(_ context.Context, credential string) error {
	if credential == "" {
		return types.NewAdapterError(types.KindConfigError, fmt.Errorf("gpt: empty credential"))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKey = credential
	a.initialized = true
	return nil
}

func (a *GPTAdapter) isInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

func (a *GPTAdapter) key() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey
}

func (a *GPTAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		SupportsContext:  true,
		SupportsBatch:    true,
		SupportsGlossary: true,
		MaxTextLength:    50000,
		Pricing:          &types.Pricing{CostPerChar: 2.5e-5},
	}
}

func (a *GPTAdapter) EstimatedCost(charCount int) float64 {
	if charCount <= 0 {
		return 0
	}
	return float64(charCount) * a.Capabilities().Pricing.CostPerChar
}

func (a *GPTAdapter) SupportsLanguagePair(_, _ string) bool { return true }

type gptTranslateRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
	Context    []string `json:"context,omitempty"`
}

type gptTranslateResponse struct {
	Translations []struct {
		Text               string  `json:"text"`
		DetectedSourceLang string  `json:"detected_source_lang,omitempty"`
		Confidence         float64 `json:"confidence,omitempty"`
	} `json:"translations"`
}

func (a *GPTAdapter) doTranslate(ctx context.Context, texts []string, sourceLang, targetLang string, turns []string) (*gptTranslateResponse, error) {
	if !a.isInitialized() {
		return nil, types.NewAdapterError(types.KindNotInitialized, fmt.Errorf("gpt: not initialized"))
	}

	body, err := json.Marshal(gptTranslateRequest{
		Texts:      texts,
		SourceLang: sourceLang,
		TargetLang: targetLang,
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
		return nil, types.NewAdapterError(types.KindQuotaExceeded, fmt.Errorf("gpt: rate limited"))
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, fmt.Errorf("gpt: status %d: %s", resp.StatusCode, raw))
	}

	var out gptTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, err)
	}
	return &out, nil
}

func (a *GPTAdapter) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
	start := time.Now()

	text := req.Text
	if len(req.Glossary) > 0 {
		text = adapter.BracketGlossary(text, req.Glossary)
	}

	turns := make([]string, 0, len(req.Context))
	for _, t := range req.Context {
		turns = append(turns, t.Role+": "+t.Text)
	}

	out, err := a.doTranslate(ctx, []string{text}, req.SourceLang, req.TargetLang, turns)
	if err != nil {
		return nil, err
	}
	if len(out.Translations) == 0 {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, fmt.Errorf("gpt: empty response"))
	}

	t := out.Translations[0]
	translated := t.Text
	if len(req.Glossary) > 0 {
		translated = adapter.StripGlossary(translated)
	}

	resolvedSource := req.SourceLang
	var detected *string
	if req.SourceLang == types.AutoLanguage || req.SourceLang == "" {
		d := t.DetectedSourceLang
		if d == "" {
			d = "en"
		}
		resolvedSource = d
		detected = &d
	}

	var confidence *float64
	if t.Confidence > 0 {
		c := t.Confidence
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

// TranslateBatch implements adapter.BatchCapable: GPT supports native
// multi-text translation in a single upstream call.
func (a *GPTAdapter) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]types.TranslationResponse, error) {
	out, err := a.doTranslate(ctx, texts, sourceLang, targetLang, nil)
	if err != nil {
		return nil, err
	}

	results := make([]types.TranslationResponse, len(out.Translations))
	for i, t := range out.Translations {
		resolvedSource := sourceLang
		var detected *string
		if sourceLang == types.AutoLanguage || sourceLang == "" {
			d := t.DetectedSourceLang
			if d == "" {
				d = "en"
			}
			resolvedSource = d
			detected = &d
		}
		results[i] = types.TranslationResponse{
			TranslatedText:     t.Text,
			SourceLang:         resolvedSource,
			TargetLang:         targetLang,
			Provider:           a.ID(),
			DetectedSourceLang: detected,
		}
	}
	return results, nil
}

func (a *GPTAdapter) DetectLanguage(ctx context.Context, text string) types.DetectionResult {
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
		a.logger.WithError(err).Debug("gpt: detect request failed")
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

func (a *GPTAdapter) CheckHealth(ctx context.Context) bool {
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

var (
	_ adapter.Adapter      = (*GPTAdapter)(nil)
	_ adapter.BatchCapable = (*GPTAdapter)(nil)
)
