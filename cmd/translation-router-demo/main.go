// Command translation-router-demo is a thin gin front end over
// pkg/router.Router: it owns no business logic of its own, mirroring
// the teacher's cmd/main.go wiring order (config -> cache -> registry
// -> handlers) but fronting the new Router instead of the orchestrator
// directly (spec.md Non-goals: the router itself binds to no
// transport).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/translation-router/internal/adapters"
	"github.com/tesseract-hub/translation-router/internal/cachestore"
	"github.com/tesseract-hub/translation-router/internal/configstore"
	"github.com/tesseract-hub/translation-router/internal/httpmw"
	"github.com/tesseract-hub/translation-router/internal/registry"
	"github.com/tesseract-hub/translation-router/internal/types"
	"github.com/tesseract-hub/translation-router/pkg/router"
)

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())
	log.Logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, relying on process environment")
	}

	cfg, err := configstore.LoadRouterConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid router configuration")
	}

	cache := buildCache(log)
	store := buildConfigStore(log)
	reg := buildRegistry(store, log)

	r := router.New(reg, cache, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tenantID := getEnv("DEMO_TENANT_ID", "demo-tenant")
	if err := r.Initialize(ctx, tenantID); err != nil {
		log.WithError(err).Fatal("router initialize failed")
	}
	defer r.Shutdown()

	limiter := httpmw.NewRateLimiter(getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120), time.Minute)

	engine := gin.New()
	engine.Use(httpmw.Recovery(log), httpmw.RequestID(), httpmw.CORS(), httpmw.TenantID(tenantID), limiter.Middleware())
	engine.POST("/v1/translate", translateHandler(r))
	engine.GET("/v1/providers", providerStatsHandler(r))
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8080"),
		Handler: engine,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

type translateRequestBody struct {
	Text       string            `json:"text" binding:"required"`
	SourceLang string            `json:"source_lang"`
	TargetLang string            `json:"target_lang" binding:"required"`
	Quality    string            `json:"quality"`
	Domain     string            `json:"domain"`
	Strategy   string            `json:"strategy"`
	Glossary   map[string]string `json:"glossary"`
}

func translateHandler(r *router.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body translateRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sourceLang := body.SourceLang
		if sourceLang == "" {
			sourceLang = types.AutoLanguage
		}

		req := types.TranslationRequest{
			Text:       body.Text,
			SourceLang: sourceLang,
			TargetLang: body.TargetLang,
			Quality:    types.Quality(orDefault(body.Quality, string(types.QualityStandard))),
			Domain:     types.Domain(orDefault(body.Domain, string(types.DomainGeneral))),
			Glossary:   body.Glossary,
		}

		strategy := types.DefaultStrategy()
		if body.Strategy != "" {
			strategy.Mode = types.StrategyMode(body.Strategy)
		}

		resp, err := r.Translate(c.Request.Context(), req, strategy)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func providerStatsHandler(r *router.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, r.GetProviderStats(c.Request.Context()))
	}
}

func buildCache(log *logrus.Entry) cachestore.Cache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		log.Info("REDIS_HOST not set, using in-memory cache")
		return cachestore.NewMemoryCache()
	}

	c, err := cachestore.NewRedisCache(host, getEnvAsInt("REDIS_PORT", 6379), os.Getenv("REDIS_PASSWORD"), getEnvAsInt("REDIS_DB", 0), log)
	if err != nil {
		log.WithError(err).Warn("redis cache unavailable, falling back to in-memory")
		return cachestore.NewMemoryCache()
	}
	return c
}

func buildConfigStore(log *logrus.Entry) configstore.Store {
	store := configstore.NewMemoryStore()
	tenantID := getEnv("DEMO_TENANT_ID", "demo-tenant")

	for id, key := range map[string]string{
		"claude": os.Getenv("CLAUDE_API_KEY"),
		"gpt":    os.Getenv("GPT_API_KEY"),
		"deepl":  os.Getenv("DEEPL_API_KEY"),
		"libre":  os.Getenv("LIBRE_API_KEY"),
	} {
		if key == "" {
			key = "demo-key"
			log.WithField("provider", id).Debug("no credential in environment, using demo placeholder")
		}
		store.Put(tenantID, configstore.CredentialRow{ProviderID: id, CredentialBlob: key, Active: true})
	}
	return store
}

func buildRegistry(store configstore.Store, log *logrus.Entry) *registry.Registry {
	all := registry.LanguageSupport{All: true}

	entries := []*registry.ProviderEntry{
		registry.NewProviderEntry("libre", adapters.NewLibreAdapter(getEnv("LIBRETRANSLATE_URL", "http://localhost:5000"), log), 1, 0, 0.65, all, 50),
		registry.NewProviderEntry("deepl", adapters.NewDeepLAdapter(getEnv("DEEPL_URL", "https://api-free.deepl.com"), log), 2, 3e-5, 0.9, all, 30),
		registry.NewProviderEntry("gpt", adapters.NewGPTAdapter(getEnv("GPT_URL", "https://api.openai.com"), log), 3, 2.5e-5, 0.85, all, 40),
		registry.NewProviderEntry("claude", adapters.NewClaudeAdapter(getEnv("CLAUDE_URL", "https://api.anthropic.com"), log), 4, 4e-5, 0.95, all, 20),
	}

	return registry.New(store, log, entries...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
