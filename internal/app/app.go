// Package app wires configuration, stores, the language model and the HTTP
// server into a runnable process.
package app

import (
	"context"
	"fmt"
	"log"

	"repolens/internal/analysis"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/github"
	"repolens/internal/llm"
	"repolens/internal/sampler"
	"repolens/internal/scan"
	"repolens/internal/server"
	"repolens/internal/server/handler"
)

type App struct {
	server *server.Server
	llm    llm.Client
	stores *stores
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	client, err := NewLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fetcher, err := NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	st, err := initStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	caches := cache.NewCaches()
	svc, err := analysis.NewService(analysis.ServiceConfig{
		Orchestrator: NewOrchestrator(cfg, client),
		Fetcher:      FetcherFor(fetcher),
		Extractor:    scan.NewExtractor(log.Default()),
		Caches:       caches,
		History:      st.history,
		Artifacts:    st.artifacts,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	h := handler.New(handler.Deps{
		Service:   svc,
		History:   st.history,
		Artifacts: st.artifacts,
		Caches:    caches,
		Repos: func(token string) (handler.RepoLister, error) {
			f, err := fetcher.WithToken(token)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	mux := server.NewMux(h, cfg.AllowedOrigins, log.Default())

	return &App{
		server: server.New(cfg.Port, mux),
		llm:    client,
		stores: st,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.llm.Close(); cerr != nil {
		log.Printf("llm close: %v", cerr)
	}
	if cerr := a.stores.Close(); cerr != nil {
		log.Printf("store close: %v", cerr)
	}
	return err
}

// NewLLM builds the configured provider with its middleware stack.
func NewLLM(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
		Retries:  cfg.LLM.Retries,
		RPS:      cfg.LLM.RPS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	log.Printf("llm: %s", client.Name())
	return client, nil
}

// NewFetcher builds the shared GitHub fetcher. Per-request tokens derive
// from it and share its pacing.
func NewFetcher(cfg *config.Config) (*github.Fetcher, error) {
	f, err := github.NewFetcher(github.Config{
		Token:    cfg.GitHub.Token,
		BaseURL:  cfg.GitHub.APIURL,
		RPS:      cfg.GitHub.RPS,
		Timeout:  cfg.GitHub.Timeout,
		MaxFiles: cfg.GitHub.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize github fetcher: %w", err)
	}
	return f, nil
}

func FetcherFor(f *github.Fetcher) analysis.FetcherFor {
	return func(token string) (analysis.RepoFetcher, error) {
		tf, err := f.WithToken(token)
		if err != nil {
			return nil, err
		}
		return tf, nil
	}
}

func NewOrchestrator(cfg *config.Config, client llm.Client) *analysis.Orchestrator {
	return analysis.NewOrchestrator(client, analysis.Options{
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Sampler: sampler.New(sampler.Options{
			MaxFiles:        cfg.Sampler.MaxFiles,
			MaxChars:        cfg.Sampler.MaxChars,
			SortDirectories: cfg.Sampler.SortDirectories,
		}),
	})
}
