package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderFake   = "fake"
)

const GroqBaseURL = "https://api.groq.com/openai/v1"

// Config selects a provider and the middleware stack around it.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	RPS      float64
	Logger   *log.Logger
}

// New builds the provider client named by cfg.Provider and wraps it as
// logging -> retry -> rate limit -> per-attempt timeout.
func New(ctx context.Context, cfg Config) (Client, error) {
	var base Client
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		base = g
	case ProviderOpenAI, ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" && strings.EqualFold(strings.TrimSpace(cfg.Provider), ProviderGroq) {
			baseURL = GroqBaseURL
		}
		o, err := NewOpenAIClient(cfg.APIKey, cfg.Model, baseURL, &http.Client{})
		if err != nil {
			return nil, err
		}
		base = o
	case ProviderFake:
		base = NewFakeClient()
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	return Wrap(base,
		WithLogging(cfg.Logger),
		Retry(retries, 500*time.Millisecond),
		RateLimit(cfg.RPS, 1),
		Timeout(cfg.Timeout),
	), nil
}
