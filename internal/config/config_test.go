package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.VisionModel)
	assert.NotEmpty(t, cfg.LLMBackend)
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"LISTEN_ADDR", "LLM_BACKEND", "LLM_API_KEY", "BAILIAN_API_KEY", "VISION_MODEL", "TEXT_MODEL",
		"ALLOWED_ORIGINS", "ARCHIVE_BACKEND", "UPSTREAM_TIMEOUT",
	} {
		unsetEnv(t, k)
	}

	cfg := Load()

	assert.Equal(t, ":3001", cfg.ListenAddr)
	assert.Equal(t, BackendOpenAI, cfg.LLMBackend)
	assert.Equal(t, "qwen-vl-max-latest", cfg.VisionModel)
	assert.Equal(t, "qwen-turbo", cfg.TextModel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, ArchiveNone, cfg.ArchiveBackend)
	assert.False(t, cfg.APIKeyConfigured())
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("UPSTREAM_TIMEOUT", "90s")
	t.Setenv("MAX_BODY_BYTES", "2048")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://nutrisnap.example ,")
	t.Setenv("HISTORY_DB_PATH", "/data/history.db")
	t.Setenv("S3_USE_SSL", "true")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	assert.Equal(t, []string{"http://localhost:5173", "https://nutrisnap.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "/data/history.db", cfg.HistoryDBPath)
	assert.True(t, cfg.S3UseSSL)
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("BAILIAN_API_KEY", "sk-bailian")

	assert.Equal(t, "sk-bailian", Load().APIKey)

	t.Setenv("LLM_API_KEY", "sk-generic")
	assert.Equal(t, "sk-generic", Load().APIKey)
}

func TestLoadClaudeBackend(t *testing.T) {
	t.Setenv("LLM_BACKEND", "Claude")
	t.Setenv("LLM_API_KEY", "")
	unsetEnv(t, "VISION_MODEL")
	t.Setenv("CLAUDE_API_KEY", "sk-ant-test")

	cfg := Load()

	assert.Equal(t, BackendClaude, cfg.LLMBackend)
	assert.Equal(t, "sk-ant-test", cfg.APIKey)
	assert.Equal(t, "claude-opus-4-6", cfg.VisionModel)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	t.Setenv("MAX_BODY_BYTES", "-5")

	cfg := Load()

	assert.Equal(t, 60*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
}

func TestLoadTimeoutSeconds(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "15")
	assert.Equal(t, 15*time.Second, Load().UpstreamTimeout)
}

func TestKeyConfigured(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: "", want: false},
		{key: "   ", want: false},
		{key: "YOUR_BAILIAN_API_KEY", want: false},
		{key: "your_api_key", want: false},
		{key: "changeme", want: false},
		{key: "sk-123", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyConfigured(tt.key))
		})
	}
}

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
