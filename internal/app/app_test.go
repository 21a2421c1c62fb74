package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/artifact"
	"repolens/internal/config"
	"repolens/internal/history"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:           "127.0.0.1:0",
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 1 << 20,
		LLM: config.LLMConfig{
			Provider: "fake",
			Timeout:  time.Second,
			Retries:  1,
		},
		GitHub:  config.GitHubConfig{RPS: 5, Timeout: time.Second, MaxFiles: 10},
		Sampler: config.SamplerConfig{MaxFiles: 5, MaxChars: 1000},
	}
}

func TestNew_InMemory(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, a)

	_, ok := a.stores.history.(*history.MemoryStore)
	assert.True(t, ok)
	_, ok = a.stores.artifacts.(*artifact.CachedStore)
	assert.True(t, ok)
	assert.Equal(t, "FakeLLM", a.llm.Name())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestNewLLM_RejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "nope"
	_, err := NewLLM(context.Background(), cfg)
	assert.Error(t, err)
}
