package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/adapter"
	"github.com/tesseract-hub/translation-router/internal/types"
)

// LibreAdapter is a cost-tier, self-hosted, glossary-unaware backend.
// Grounded on the teacher's LibreTranslateClient: a base URL with no
// API key required, a cached /languages lookup, and a goroutine+
// semaphore batch path.
type LibreAdapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry

	mu          sync.RWMutex
	initialized bool

	langMu    sync.RWMutex
	languages map[string]struct{}
	lastFetch time.Time
}

func NewLibreAdapter(baseURL string, logger *logrus.Entry) *LibreAdapter {
	return &LibreAdapter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

func (a *LibreAdapter) ID() string { return "libre" }

// Initialize for a self-hosted backend accepts a non-empty opaque
// token even though Libre itself does not require one; the contract
// in spec.md §4.1 still requires a non-empty credential.
func (a *LibreAdapter) Initialize(_ context.Context, credential string) error {
	if credential == "" {
		return types.NewAdapterError(types.KindConfigError, fmt.Errorf("libre: empty credential"))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = true
	return nil
}

func (a *LibreAdapter) isInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

func (a *LibreAdapter) Capabilities() types.Capabilities {
	return types.Capabilities{
		SupportsContext:  false,
		SupportsBatch:    true,
		SupportsGlossary: false,
		MaxTextLength:    10000,
		Pricing:          &types.Pricing{CostPerChar: 0},
	}
}

func (a *LibreAdapter) EstimatedCost(int) float64 { return 0 }

func (a *LibreAdapter) getLanguages(ctx context.Context) map[string]struct{} {
	a.langMu.RLock()
	if a.languages != nil && time.Since(a.lastFetch) < time.Hour {
		langs := a.languages
		a.langMu.RUnlock()
		return langs
	}
	a.langMu.RUnlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/languages", nil)
	if err != nil {
		return nil
	}
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var list []struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil
	}

	langs := make(map[string]struct{}, len(list))
	for _, l := range list {
		langs[l.Code] = struct{}{}
	}

	a.langMu.Lock()
	a.languages = langs
	a.lastFetch = time.Now()
	a.langMu.Unlock()

	return langs
}

func (a *LibreAdapter) SupportsLanguagePair(src, tgt string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	langs := a.getLanguages(ctx)
	if langs == nil {
		return false
	}
	_, srcOK := langs[src]
	_, tgtOK := langs[tgt]
	return (srcOK || src == types.AutoLanguage) && tgtOK
}

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format,omitempty"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (a *LibreAdapter) Translate(ctx context.Context, req types.TranslationRequest) (*types.TranslationResponse, error) {
	start := time.Now()

	if !a.isInitialized() {
		return nil, types.NewAdapterError(types.KindNotInitialized, fmt.Errorf("libre: not initialized"))
	}

	sourceLang := req.SourceLang
	var detected *string
	if sourceLang == "" || sourceLang == types.AutoLanguage {
		d := a.DetectLanguage(ctx, req.Text)
		if d.Language == "unknown" {
			sourceLang = "en"
		} else {
			sourceLang = d.Language
		}
		detected = &sourceLang
	}

	body, err := json.Marshal(libreTranslateRequest{Q: req.Text, Source: sourceLang, Target: req.TargetLang, Format: "text"})
	if err != nil {
		return nil, types.NewAdapterError(types.KindInvalidRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/translate", bytes.NewReader(body))
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

	if resp.StatusCode == http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		return nil, types.NewAdapterError(types.KindInvalidRequest, fmt.Errorf("libre: %s", raw))
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, fmt.Errorf("libre: status %d: %s", resp.StatusCode, raw))
	}

	var out libreTranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAdapterError(types.KindUpstreamUnavailable, err)
	}

	return &types.TranslationResponse{
		TranslatedText:     out.TranslatedText,
		SourceLang:         sourceLang,
		TargetLang:         req.TargetLang,
		Provider:           a.ID(),
		Cached:             false,
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		DetectedSourceLang: detected,
	}, nil
}

// TranslateBatch implements adapter.BatchCapable with a bounded
// goroutine pool, mirroring the teacher's LibreTranslateClient
// TranslateBatch.
func (a *LibreAdapter) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]types.TranslationResponse, error) {
	results := make([]types.TranslationResponse, len(texts))
	errs := make([]error, len(texts))

	sem := make(chan struct{}, 10)
	var wg sync.WaitGroup

	for i, text := range texts {
		wg.Add(1)
		go func(idx int, txt string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := a.Translate(ctx, types.TranslationRequest{Text: txt, SourceLang: sourceLang, TargetLang: targetLang})
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = *resp
		}(i, text)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(texts) && len(texts) > 0 {
		return nil, errs[0]
	}

	return results, nil
}

type libreDetectResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

func (a *LibreAdapter) DetectLanguage(ctx context.Context, text string) types.DetectionResult {
	if !a.isInitialized() || text == "" {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	body, err := json.Marshal(map[string]string{"q": text})
	if err != nil {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.logger.WithError(err).Debug("libre: detect request failed")
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	var detections []libreDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&detections); err != nil || len(detections) == 0 {
		return types.DetectionResult{Language: "unknown", Confidence: 0}
	}

	return types.DetectionResult{Language: detections[0].Language, Confidence: detections[0].Confidence}
}

func (a *LibreAdapter) CheckHealth(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/languages", nil)
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

var (
	_ adapter.Adapter      = (*LibreAdapter)(nil)
	_ adapter.BatchCapable = (*LibreAdapter)(nil)
)
