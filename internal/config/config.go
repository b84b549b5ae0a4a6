// Package config loads studyforge configuration from the process environment.
//
// Missing provider credentials are never fatal: a provider without a key is
// simply reported as unavailable by the prober.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment constants
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Config holds everything the server needs at startup
type Config struct {
	Port        string
	Environment string

	// Provider credentials and endpoints
	GoogleAPIKey       string
	GoogleModel        string
	GoogleBaseURL      string
	HuggingFaceAPIKey  string
	HuggingFaceModel   string
	HuggingFaceBaseURL string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	OllamaBaseURL      string
	OllamaModel        string

	// Timeouts
	ProviderTimeout       time.Duration
	OllamaProbeTimeout    time.Duration
	OllamaGenerateTimeout time.Duration
	StatusRefreshInterval time.Duration

	// Settings persistence
	StoreBackend string
	RedisURL     string
	RedisPrefix  string
	DatabaseURL  string
	SQLitePath   string
	SettingsFile string

	// HTTP
	RateLimitPerMinute int
	RateLimitBurst     int
	CORSOrigins        []string
}

// Load reads the configuration from environment variables.
// Call godotenv.Load before this if a .env file should be honoured.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: GetEnvironment(),

		GoogleAPIKey:       apiKey("GOOGLE_AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "VITE_GOOGLE_AI_API_KEY"),
		GoogleModel:        getEnv("GOOGLE_AI_MODEL", ""),
		GoogleBaseURL:      getEnv("GOOGLE_AI_BASE_URL", ""),
		HuggingFaceAPIKey:  apiKey("HUGGINGFACE_API_KEY", "HF_TOKEN", "HUGGING_FACE_HUB_TOKEN", "VITE_HUGGINGFACE_API_KEY"),
		HuggingFaceModel:   getEnv("HUGGINGFACE_MODEL", ""),
		HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", ""),
		OpenAIAPIKey:       apiKey("OPENAI_API_KEY", "OPENAI_KEY", "VITE_OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OllamaBaseURL:      getEnvAny([]string{"OLLAMA_BASE_URL", "OLLAMA_URL", "OLLAMA_HOST"}, "http://localhost:11434"),
		OllamaModel:        getEnv("OLLAMA_MODEL", ""),

		ProviderTimeout:       getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		OllamaProbeTimeout:    getEnvDuration("OLLAMA_PROBE_TIMEOUT", 3*time.Second),
		OllamaGenerateTimeout: getEnvDuration("OLLAMA_GENERATE_TIMEOUT", 60*time.Second),
		StatusRefreshInterval: getEnvDuration("STATUS_REFRESH_INTERVAL", 5*time.Minute),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", defaultStoreBackend())),
		RedisURL:     getEnv("REDIS_URL", ""),
		RedisPrefix:  getEnv("REDIS_PREFIX", "studyforge:"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SQLitePath:   getEnv("SQLITE_PATH", "studyforge.db"),
		SettingsFile: getEnv("SETTINGS_FILE", "data/settings.json"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}
}

// defaultStoreBackend picks the most durable backend the environment points at
func defaultStoreBackend() string {
	switch {
	case os.Getenv("REDIS_URL") != "":
		return "redis"
	case os.Getenv("DATABASE_URL") != "":
		return "postgres"
	default:
		return "file"
	}
}

// ValidationError collects configuration problems. Warnings never fail startup.
type ValidationError struct {
	Invalid  []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Invalid, ", "))
}

// HasErrors reports whether any setting is invalid
func (e *ValidationError) HasErrors() bool {
	return len(e.Invalid) > 0
}

// Validate checks the configuration. It returns a *ValidationError carrying
// warnings even when nothing is invalid, or nil if there is nothing to report.
func (c *Config) Validate() *ValidationError {
	result := &ValidationError{}

	switch c.StoreBackend {
	case "memory", "file", "redis", "postgres", "sqlite":
	default:
		result.Invalid = append(result.Invalid, fmt.Sprintf("STORE_BACKEND %q", c.StoreBackend))
	}
	if c.StoreBackend == "redis" && c.RedisURL == "" {
		result.Invalid = append(result.Invalid, "REDIS_URL (required for redis backend)")
	}
	if c.StoreBackend == "postgres" && c.DatabaseURL == "" {
		result.Invalid = append(result.Invalid, "DATABASE_URL (required for postgres backend)")
	}
	if c.OllamaProbeTimeout <= 0 {
		result.Invalid = append(result.Invalid, "OLLAMA_PROBE_TIMEOUT must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		result.Invalid = append(result.Invalid, "RATE_LIMIT_PER_MINUTE must be positive")
	}

	if len(c.ConfiguredCloudProviders()) == 0 {
		result.Warnings = append(result.Warnings, "no cloud provider credentials configured; only the local Ollama daemon can serve requests")
	}
	if c.StoreBackend == "memory" {
		result.Warnings = append(result.Warnings, "settings are kept in memory and will not survive a restart")
	}

	if !result.HasErrors() && len(result.Warnings) == 0 {
		return nil
	}
	return result
}

// ConfiguredCloudProviders lists the cloud providers that have a credential
func (c *Config) ConfiguredCloudProviders() []string {
	var out []string
	if c.GoogleAPIKey != "" {
		out = append(out, "google")
	}
	if c.HuggingFaceAPIKey != "" {
		out = append(out, "huggingface")
	}
	if c.OpenAIAPIKey != "" {
		out = append(out, "openai")
	}
	return out
}

// GetEnvironment returns the current environment name
func GetEnvironment() string {
	env := getEnvAny([]string{"GO_ENV", "APP_ENV", "ENVIRONMENT", "ENV"}, EnvDevelopment)
	return strings.ToLower(env)
}

// IsProductionEnvironment returns true if running in production
func IsProductionEnvironment() bool {
	env := GetEnvironment()
	return env == EnvProduction || env == "prod"
}

func apiKey(keys ...string) string {
	for _, key := range keys {
		if v := normalizeAPIKey(os.Getenv(key)); v != "" && !isPlaceholderKey(v) {
			return v
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvAny(keys []string, fallback string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("3s") or plain milliseconds ("3000")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
