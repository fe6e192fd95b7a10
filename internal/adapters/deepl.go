package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/adapter"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// DeepLAdapter is a quality-tier cloud backend with no context support
// (grounded on the teacher's GoogleTranslateClient: keyed query-string
// auth, a flat translate endpoint, no conversational framing).
type DeepLAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry

	mu          sync.RWMutex
	apiKey      string
	initialized bool
}

func NewDeepLAdapter(baseURL string, logger *logrus.Entry) *DeepLAdapter {
	return &DeepLAdapter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (a *DeepLAdapter) ID() string { return "deepl" }

func (a *DeepLAdapter) Initialize(_ context.Context, credential string) error {
	if credential == "" {
		return types.NewAdapterError(types.KindConfigError, fmt.Errorf("deepl: empty credential"))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKey = credential
	a.initialized = true
	return nil
}

func (a *DeepLAdapter) isInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

func (a *DeepLAdapter) key() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey
}

func (a *DeepLAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		SupportsContext:  false,
		SupportsBatch:    false,
		SupportsGlossary: true,
		MaxTextLength:    30000,
		Pricing:          &types.Pricing{CostPerChar: 3e-5},
	}
}

func (a *DeepLAdapter) EstimatedCost(charCount int) float64 {
	if charCount <= 0 {
		return 0
	}
	return float64(charCount) * a.Capabilities().Pricing.CostPerChar
}

func (a *DeepLAdapter) SupportsLanguagePair(_, _ string) bool { return true }

type deeplRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		Text                   string `json:"text"`
		DetectedSourceLanguage string `json:"detected_source_language,omitempty"`
	} `json:"translations"`
}

func (a *DeepLAdapter) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
	start := time.Now()

	if !a.isInitialized() {
		return nil, types.NewAdapterError(types.KindNotInitialized, fmt.Errorf("deepl: not initialized"))
	}

	text := req.Text
	if len(req.Glossary) > 0 {
		text = adapter.BracketGlossary(text, req.Glossary)
	}

	payload := deeplRequest{Text: []string{text}, TargetLang: req.TargetLang}
	if req.SourceLang != "" && req.SourceLang != types.AutoLanguage {
		payload.SourceLang = req.SourceLang
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewAdapterError(types.KindInvalidRequest, err)
	}

	endpoint := fmt.Sprintf("%s/v2/translate?auth_key=%s", a.baseURL, url.QueryEscape(a.key()))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAdapterError(types.KindInvalidRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewAdapterError(types.KindTimeout, err)
		}
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, types.NewAdapterError(types.KindQuotaExceeded, fmt.Errorf("deepl: quota exceeded"))
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, fmt.Errorf("deepl: status %d: %s", resp.StatusCode, raw))
	}

	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, err)
	}
	if len(out.Translations) == 0 {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, fmt.Errorf("deepl: no translation returned"))
	}

	translated := out.Translations[0].Text
	if len(req.Glossary) > 0 {
		translated = adapter.StripGlossary(translated)
	}

	resolvedSource := req.SourceLang
	var detected *string
	if req.SourceLang == "" || req.SourceLang == types.AutoLanguage {
		d := out.Translations[0].DetectedSourceLanguage
		if d == "" {
			d = "en"
		}
		resolvedSource = d
		detected = &d
	}

	return &types.TranslationResponse{
		TranslatedText:     translated,
		SourceLang:         resolvedSource,
		TargetLang:         req.TargetLang,
		Provider:           a.ID(),
		Cached:             false,
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		DetectedSourceLang: detected,
	}, nil
}

// DetectLanguage: DeepL has no standalone detect endpoint; we infer
// the source language by translating the full text into English with
// source "auto" and reading the detected source language, only when
// initialized, otherwise report unknown per the adapter contract.
func (a *DeepLAdapter) DetectLanguage(ctx context.Context, text string) types.DetectionResult {
	if !a.isInitialized() || text == "" {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	resp, err := a.Translate(ctx, types.TranslationRequest{Text: text, SourceLang: types.AutoLanguage, TargetLang: "en"})
	if err != nil || resp.DetectedSourceLang == nil {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}
	return types.DetectionResult{Language: *resp.DetectedSourceLang, Confidence: 0.8}
}

func (a *DeepLAdapter) CheckHealth(ctx context.Context) bool {
	if !a.isInitialized() {
		return false
	}

	endpoint := fmt.Sprintf("%s/v2/usage?auth_key=%s", a.baseURL, url.QueryEscape(a.key()))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

var _ adapter.Adapter = (*DeepLAdapter)(nil)
