package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendOpenAI = "openai"
	BackendClaude = "claude"

	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// placeholderKeys are sample values from .env templates that must not be
// sent upstream.
var placeholderKeys = []string{"YOUR_BAILIAN_API_KEY", "YOUR_API_KEY", "changeme"}

type Config struct {
	ListenAddr string

	LLMBackend      string
	APIKey          string
	BaseURL         string
	VisionModel     string
	TextModel       string
	VisionFormat    string
	NutritionMatch  string
	UpstreamTimeout time.Duration

	MaxBodyBytes   int64
	AllowedOrigins []string

	HistoryDBPath string

	ArchiveBackend   string
	ArchiveLocalPath string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3Region         string
	S3UseSSL         bool

	LogLevel string
	LogFile  string
}

func Load() *Config {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_BACKEND")))
	if backend == "" {
		backend = BackendOpenAI
	}

	visionModel, textModel := "qwen-vl-max-latest", "qwen-turbo"
	apiKey := firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("BAILIAN_API_KEY"))
	if backend == BackendClaude {
		visionModel, textModel = "claude-opus-4-6", "claude-opus-4-6"
		apiKey = firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("CLAUDE_API_KEY"))
	}

	return &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":3001"),
		LLMBackend:       backend,
		APIKey:           apiKey,
		BaseURL:          getEnv("LLM_BASE_URL", ""),
		VisionModel:      getEnv("VISION_MODEL", visionModel),
		TextModel:        getEnv("TEXT_MODEL", textModel),
		VisionFormat:     getEnv("VISION_FORMAT", "fielded"),
		NutritionMatch:   getEnv("NUTRITION_MATCH", "last"),
		UpstreamTimeout:  getDurationEnv("UPSTREAM_TIMEOUT", 60*time.Second),
		MaxBodyBytes:     getInt64Env("MAX_BODY_BYTES", 10<<20),
		AllowedOrigins:   getListEnv("ALLOWED_ORIGINS", []string{"*"}),
		HistoryDBPath:    getEnv("HISTORY_DB_PATH", ""),
		ArchiveBackend:   strings.ToLower(getEnv("ARCHIVE_BACKEND", ArchiveNone)),
		ArchiveLocalPath: getEnv("ARCHIVE_LOCAL_PATH", "/data/images"),
		S3Endpoint:       getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3Bucket:         getEnv("S3_BUCKET", "nutrisnap"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3UseSSL:         getBoolEnv("S3_USE_SSL", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
	}
}

// APIKeyConfigured reports whether an upstream credential is usable.
func (c *Config) APIKeyConfigured() bool {
	return KeyConfigured(c.APIKey)
}

// KeyConfigured reports whether key is set and is not a template placeholder.
func KeyConfigured(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, p := range placeholderKeys {
		if strings.EqualFold(key, p) {
			return false
		}
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt64Env(key string, defaultVal int64) int64 {
	if n, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultVal
}

// getDurationEnv accepts Go durations ("90s") or a bare number of seconds.
func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val := getEnv(key, "")
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func getListEnv(key string, defaultVal []string) []string {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	out := make([]string, 0)
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
