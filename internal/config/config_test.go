package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trims quotes and bearer prefix",
			in:   `"Bearer AIza-abc123"`,
			want: "AIza-abc123",
		},
		{
			name: "strips escaped and real control characters",
			in:   "hf_abc\\n123\r\n\t",
			want: "hf_abc123",
		},
		{
			name: "strips hidden unicode characters",
			in:   "sk-\u200bproj-\ufeffabc123",
			want: "sk-proj-abc123",
		},
		{
			name: "empty input",
			in:   "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, normalizeAPIKey(tc.in))
		})
	}
}

func TestIsPlaceholderKey(t *testing.T) {
	assert.True(t, isPlaceholderKey("your-google-api-key"))
	assert.True(t, isPlaceholderKey("<HF_TOKEN>"))
	assert.True(t, isPlaceholderKey("CHANGEME"))
	assert.False(t, isPlaceholderKey("AIzaSyD-real-looking-key"))
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"defaults to development", map[string]string{}, EnvDevelopment},
		{"GO_ENV wins", map[string]string{"GO_ENV": "Production", "APP_ENV": "staging"}, EnvProduction},
		{"APP_ENV", map[string]string{"APP_ENV": "staging"}, EnvStaging},
		{"ENVIRONMENT", map[string]string{"ENVIRONMENT": "test"}, EnvTest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"GO_ENV", "APP_ENV", "ENVIRONMENT", "ENV"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, GetEnvironment())
		})
	}
}

func TestIsProductionEnvironment(t *testing.T) {
	t.Setenv("GO_ENV", "prod")
	assert.True(t, IsProductionEnvironment())

	t.Setenv("GO_ENV", "development")
	assert.False(t, IsProductionEnvironment())
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "VITE_GOOGLE_AI_API_KEY",
		"HUGGINGFACE_API_KEY", "HF_TOKEN", "HUGGING_FACE_HUB_TOKEN", "VITE_HUGGINGFACE_API_KEY",
		"OPENAI_API_KEY", "OPENAI_KEY", "VITE_OPENAI_API_KEY",
		"OLLAMA_BASE_URL", "OLLAMA_URL", "OLLAMA_HOST", "OLLAMA_MODEL",
		"STORE_BACKEND", "REDIS_URL", "DATABASE_URL", "PORT",
		"OLLAMA_PROBE_TIMEOUT", "PROVIDER_TIMEOUT", "RATE_LIMIT_PER_MINUTE", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	assert.Equal(t, 3*time.Second, cfg.OllamaProbeTimeout)
	assert.Equal(t, 60*time.Second, cfg.OllamaGenerateTimeout)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "file", cfg.StoreBackend)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Empty(t, cfg.ConfiguredCloudProviders())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GEMINI_API_KEY", " 'AIza-test' ")
	t.Setenv("HF_TOKEN", "your-huggingface-token")
	t.Setenv("OPENAI_API_KEY", "Bearer sk-test")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("OLLAMA_PROBE_TIMEOUT", "1500")
	t.Setenv("PROVIDER_TIMEOUT", "20s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")

	cfg := Load()
	assert.Equal(t, "AIza-test", cfg.GoogleAPIKey)
	assert.Empty(t, cfg.HuggingFaceAPIKey, "placeholder keys are treated as absent")
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.OllamaProbeTimeout)
	assert.Equal(t, 20*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"google", "openai"}, cfg.ConfiguredCloudProviders())
}

func TestValidate(t *testing.T) {
	clearConfigEnv(t)

	t.Run("warnings only", func(t *testing.T) {
		cfg := Load()
		cfg.StoreBackend = "memory"
		result := cfg.Validate()
		require.NotNil(t, result)
		assert.False(t, result.HasErrors())
		assert.Len(t, result.Warnings, 2)
	})

	t.Run("clean", func(t *testing.T) {
		cfg := Load()
		cfg.GoogleAPIKey = "AIza-test"
		assert.Nil(t, cfg.Validate())
	})

	t.Run("invalid backend", func(t *testing.T) {
		cfg := Load()
		cfg.GoogleAPIKey = "AIza-test"
		cfg.StoreBackend = "mongo"
		result := cfg.Validate()
		require.NotNil(t, result)
		assert.True(t, result.HasErrors())
		assert.Contains(t, result.Error(), "STORE_BACKEND")
	})

	t.Run("redis without url", func(t *testing.T) {
		cfg := Load()
		cfg.GoogleAPIKey = "AIza-test"
		cfg.StoreBackend = "redis"
		result := cfg.Validate()
		require.NotNil(t, result)
		assert.Contains(t, result.Error(), "REDIS_URL")
	})
}
