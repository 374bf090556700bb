package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vbonduro/nutrisnap/internal/config"
	"github.com/vbonduro/nutrisnap/internal/db"
	"github.com/vbonduro/nutrisnap/internal/llm"
	"github.com/vbonduro/nutrisnap/internal/llm/claude"
	"github.com/vbonduro/nutrisnap/internal/llm/openai"
	"github.com/vbonduro/nutrisnap/internal/logging"
	"github.com/vbonduro/nutrisnap/internal/metrics"
	"github.com/vbonduro/nutrisnap/internal/nutrition"
	"github.com/vbonduro/nutrisnap/internal/photostore"
	"github.com/vbonduro/nutrisnap/internal/photostore/local"
	"github.com/vbonduro/nutrisnap/internal/photostore/s3"
	"github.com/vbonduro/nutrisnap/internal/service"
	"github.com/vbonduro/nutrisnap/internal/store"
	"github.com/vbonduro/nutrisnap/internal/vision"
	"github.com/vbonduro/nutrisnap/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := vision.ParseFormat(cfg.VisionFormat)
	if err != nil {
		return err
	}
	policy, err := nutrition.ParseMatchPolicy(cfg.NutritionMatch)
	if err != nil {
		return err
	}

	if !cfg.APIKeyConfigured() {
		// The server still starts; analysis requests fail until a key is set.
		logger.Warn("upstream API key not configured", "backend", cfg.LLMBackend)
	}
	completer := newCompleter(cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	analyzer := service.NewAnalyzer(
		service.Config{APIKey: cfg.APIKey, UpstreamTimeout: cfg.UpstreamTimeout},
		vision.NewIdentifier(completer, cfg.VisionModel, format),
		nutrition.NewEstimator(completer, cfg.TextModel, policy),
		m,
		logger,
	)
	server := web.NewServer(analyzer, m, reg, web.Options{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		WriteTimeout:   2*cfg.UpstreamTimeout + 30*time.Second,
	}, logger)

	if cfg.HistoryDBPath != "" {
		database, err := db.Open(cfg.HistoryDBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()
		history := store.NewAnalysisStore(database)
		analyzer.WithHistory(history)
		server.WithHistory(history)
		logger.Info("analysis history enabled", "path", cfg.HistoryDBPath)
	}

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		analyzer.WithArchive(archive)
		server.WithArchive(archive)
		logger.Info("image archive enabled", "backend", cfg.ArchiveBackend)
	}

	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

func newCompleter(cfg *config.Config, logger *slog.Logger) llm.Completer {
	switch cfg.LLMBackend {
	case config.BackendClaude:
		logger.Info("using Claude backend", "vision_model", cfg.VisionModel, "text_model", cfg.TextModel)
		return claude.NewClient(cfg.APIKey, cfg.BaseURL)
	default:
		if cfg.LLMBackend != config.BackendOpenAI {
			logger.Warn("unknown LLM_BACKEND, falling back to openai", "backend", cfg.LLMBackend)
		}
		logger.Info("using OpenAI-compatible backend",
			"base_url", cfg.BaseURL, "vision_model", cfg.VisionModel, "text_model", cfg.TextModel)
		return openai.NewClient(cfg.APIKey, cfg.BaseURL)
	}
}

// newArchive returns nil when archiving is disabled.
func newArchive(ctx context.Context, cfg *config.Config) (photostore.PhotoStore, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveLocal:
		return local.New(cfg.ArchiveLocalPath)
	case config.ArchiveS3:
		st, err := s3.New(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, nil
	}
}
