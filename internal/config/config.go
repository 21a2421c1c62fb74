package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	MaxUploadBytes int64
	DatabaseURL    string
	LLM            LLMConfig
	GitHub         GitHubConfig
	Sampler        SamplerConfig
	Artifact       ArtifactConfig
}

type LLMConfig struct {
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
	Retries         int
	RPS             float64
}

type GitHubConfig struct {
	Token    string
	APIURL   string
	RPS      float64
	Timeout  time.Duration
	MaxFiles int
}

type SamplerConfig struct {
	MaxFiles        int
	MaxChars        int
	SortDirectories bool
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var envBindings = map[string][]string{
	"port":                  {"PORT"},
	"env":                   {"APP_ENV"},
	"allowed_origins":       {"ALLOWED_ORIGINS"},
	"max_upload_bytes":      {"MAX_UPLOAD_BYTES"},
	"database_url":          {"DATABASE_URL"},
	"llm.provider":          {"LLM_PROVIDER"},
	"llm.model":             {"LLM_MODEL"},
	"llm.gemini_api_key":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"llm.openai_api_key":    {"OPENAI_API_KEY", "GROQ_API_KEY"},
	"llm.base_url":          {"OPENAI_BASE_URL"},
	"llm.temperature":       {"LLM_TEMPERATURE"},
	"llm.max_output_tokens": {"LLM_MAX_OUTPUT_TOKENS"},
	"llm.timeout":           {"LLM_TIMEOUT"},
	"llm.retries":           {"LLM_RETRIES"},
	"llm.rps":               {"LLM_RPS"},
	"github.token":          {"GITHUB_TOKEN"},
	"github.api_url":        {"GITHUB_API_URL"},
	"github.rps":            {"GITHUB_RPS"},
	"github.timeout":        {"GITHUB_TIMEOUT"},
	"github.max_files":      {"GITHUB_MAX_FILES"},
	"sampler.max_files":     {"SAMPLE_MAX_FILES"},
	"sampler.max_chars":     {"SAMPLE_MAX_CHARS"},
	"sampler.sort_dirs":     {"SAMPLE_SORT_DIRECTORIES"},
	"artifact.endpoint":     {"ARTIFACT_S3_ENDPOINT"},
	"artifact.region":       {"ARTIFACT_S3_REGION"},
	"artifact.access_key":   {"ARTIFACT_S3_ACCESS_KEY", "MINIO_ROOT_USER"},
	"artifact.secret_key":   {"ARTIFACT_S3_SECRET_KEY", "MINIO_ROOT_PASSWORD"},
	"artifact.bucket":       {"ARTIFACT_S3_BUCKET"},
	"artifact.use_ssl":      {"ARTIFACT_S3_USE_SSL"},
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"port":     "port",
	"provider": "llm.provider",
	"model":    "llm.model",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8080")
	v.SetDefault("env", "local")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("max_upload_bytes", 50<<20)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_output_tokens", 4096)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.retries", 3)
	v.SetDefault("llm.rps", 0)
	v.SetDefault("github.rps", 5)
	v.SetDefault("github.timeout", "30s")
	v.SetDefault("github.max_files", 100)
	v.SetDefault("sampler.max_files", 15)
	v.SetDefault("sampler.max_chars", 10000)
	v.SetDefault("sampler.sort_dirs", false)
	v.SetDefault("artifact.region", "us-east-1")
	v.SetDefault("artifact.bucket", "repolens-reports")
	v.SetDefault("artifact.use_ssl", true)
}

// Load reads .env (if present), then environment variables, then flags.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	port := strings.TrimSpace(v.GetString("port"))
	if port != "" && !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		port = ":" + port
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("llm.provider")))
	apiKey := v.GetString("llm.gemini_api_key")
	if provider != "gemini" {
		apiKey = v.GetString("llm.openai_api_key")
	}

	cfg := &Config{
		Port:           port,
		Env:            firstNonEmpty(strings.TrimSpace(v.GetString("env")), "local"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		LLM: LLMConfig{
			Provider:        provider,
			Model:           strings.TrimSpace(v.GetString("llm.model")),
			APIKey:          strings.TrimSpace(apiKey),
			BaseURL:         strings.TrimSpace(v.GetString("llm.base_url")),
			Temperature:     float32(v.GetFloat64("llm.temperature")),
			MaxOutputTokens: v.GetInt32("llm.max_output_tokens"),
			Timeout:         v.GetDuration("llm.timeout"),
			Retries:         v.GetInt("llm.retries"),
			RPS:             v.GetFloat64("llm.rps"),
		},
		GitHub: GitHubConfig{
			Token:    strings.TrimSpace(v.GetString("github.token")),
			APIURL:   strings.TrimSpace(v.GetString("github.api_url")),
			RPS:      v.GetFloat64("github.rps"),
			Timeout:  v.GetDuration("github.timeout"),
			MaxFiles: v.GetInt("github.max_files"),
		},
		Sampler: SamplerConfig{
			MaxFiles:        v.GetInt("sampler.max_files"),
			MaxChars:        v.GetInt("sampler.max_chars"),
			SortDirectories: v.GetBool("sampler.sort_dirs"),
		},
		Artifact: loadArtifactConfig(v),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadArtifactConfig(v *viper.Viper) ArtifactConfig {
	endpoint := strings.TrimSpace(v.GetString("artifact.endpoint"))
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(v.GetString("artifact.region")), "us-east-1"),
		AccessKey: strings.TrimSpace(v.GetString("artifact.access_key")),
		SecretKey: strings.TrimSpace(v.GetString("artifact.secret_key")),
		Bucket:    strings.TrimSpace(v.GetString("artifact.bucket")),
		UseSSL:    v.GetBool("artifact.use_ssl"),
	}
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai", "groq", "fake":
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "openai" || c.LLM.Provider == "groq" {
		if c.LLM.Model == "" {
			return fmt.Errorf("config: LLM_MODEL is required for provider %s", c.LLM.Provider)
		}
	}
	if c.Sampler.MaxFiles <= 0 {
		return fmt.Errorf("config: SAMPLE_MAX_FILES must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
