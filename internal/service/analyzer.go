package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/nutrisnap/internal/config"
	"github.com/vbonduro/nutrisnap/internal/domain"
	"github.com/vbonduro/nutrisnap/internal/imagedata"
	"github.com/vbonduro/nutrisnap/internal/llm"
	"github.com/vbonduro/nutrisnap/internal/logging"
	"github.com/vbonduro/nutrisnap/internal/metrics"
	"github.com/vbonduro/nutrisnap/internal/nutrition"
	"github.com/vbonduro/nutrisnap/internal/photostore"
	"github.com/vbonduro/nutrisnap/internal/vision"
)

var (
	ErrMissingImage  = errors.New("missing image payload")
	ErrNotConfigured = errors.New("upstream API key not configured")
)

// foodIdentifier is the subset of vision.Identifier that Analyzer requires.
type foodIdentifier interface {
	Identify(ctx context.Context, img *llm.Image) (*vision.Result, error)
	Model() string
}

// nutritionEstimator is the subset of nutrition.Estimator that Analyzer requires.
type nutritionEstimator interface {
	Estimate(ctx context.Context, foods []domain.IdentifiedFood) (*nutrition.Result, error)
	Model() string
}

// analysisRepository is the subset of store.AnalysisStore that Analyzer requires.
type analysisRepository interface {
	Create(ctx context.Context, a *domain.Analysis) error
}

type Config struct {
	APIKey string
	// UpstreamTimeout bounds each model call. Zero disables the bound.
	UpstreamTimeout time.Duration
}

type Result struct {
	ID    string
	Foods []domain.NutritionRecord
}

// Analyzer runs the two-stage photo to nutrition pipeline.
type Analyzer struct {
	cfg        Config
	identifier foodIdentifier
	estimator  nutritionEstimator
	history    analysisRepository
	archive    photostore.PhotoStore
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewAnalyzer(
	cfg Config,
	identifier foodIdentifier,
	estimator nutritionEstimator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		identifier: identifier,
		estimator:  estimator,
		metrics:    m,
		logger:     logger,
	}
}

// WithHistory records every analysis in repo.
func (a *Analyzer) WithHistory(repo analysisRepository) *Analyzer {
	a.history = repo
	return a
}

// WithArchive stores every decoded image in ps.
func (a *Analyzer) WithArchive(ps photostore.PhotoStore) *Analyzer {
	a.archive = ps
	return a
}

// Analyze identifies the foods in imageBase64 and estimates their nutrition.
// A photo without food yields an empty, non-nil Foods slice.
func (a *Analyzer) Analyze(ctx context.Context, imageBase64 string) (*Result, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return nil, ErrMissingImage
	}
	if !config.KeyConfigured(a.cfg.APIKey) {
		return nil, ErrNotConfigured
	}

	log := logging.FromContext(ctx, a.logger)

	img, err := imagedata.Decode(imageBase64)
	if err != nil {
		log.Warn("rejected image payload", "error", err, "bytes", len(imageBase64))
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	id := logging.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	rec := &domain.Analysis{
		ID:          id,
		VisionModel: a.identifier.Model(),
		TextModel:   a.estimator.Model(),
		ImageMIME:   img.MIME,
	}
	log.Info("analysis started", "analysis_id", id, "mime_type", img.MIME, "bytes", len(img.Data))

	foods, err := a.run(ctx, log, img, rec)
	rec.Foods = foods
	a.metrics.ObserveAnalysis(err)
	a.persist(ctx, log, rec, img, err)
	if err != nil {
		return nil, err
	}

	log.Info("analysis complete", "analysis_id", id, "foods", len(foods))
	return &Result{ID: id, Foods: foods}, nil
}

func (a *Analyzer) run(ctx context.Context, log *slog.Logger, img *llm.Image, rec *domain.Analysis) ([]domain.NutritionRecord, error) {
	vctx, cancel := a.stageContext(ctx)
	start := time.Now()
	identified, err := a.identifier.Identify(vctx, img)
	cancel()
	a.metrics.ObserveStage(metrics.StageVision, err, time.Since(start))
	if err != nil {
		log.Error("vision stage failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	a.metrics.ObserveTokens(metrics.StageVision, identified.InputTokens, identified.OutputTokens)
	a.metrics.FoodsIdentified.Observe(float64(len(identified.Foods)))
	rec.VisionRaw = identified.RawResponse
	log.Info("vision stage complete", "foods", len(identified.Foods), "duration", time.Since(start))
	log.Debug("vision reply", "raw", identified.RawResponse)

	if len(identified.Foods) == 0 {
		return []domain.NutritionRecord{}, nil
	}

	nctx, cancel := a.stageContext(ctx)
	start = time.Now()
	estimated, err := a.estimator.Estimate(nctx, identified.Foods)
	cancel()
	a.metrics.ObserveStage(metrics.StageNutrition, err, time.Since(start))
	if err != nil {
		log.Error("nutrition stage failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	a.metrics.ObserveTokens(metrics.StageNutrition, estimated.InputTokens, estimated.OutputTokens)
	a.metrics.ObserveRecords(estimated.Records)
	rec.NutritionRaw = estimated.RawResponse
	log.Info("nutrition stage complete", "records", len(estimated.Records), "duration", time.Since(start))
	log.Debug("nutrition reply", "raw", estimated.RawResponse)

	return estimated.Records, nil
}

func (a *Analyzer) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.UpstreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.UpstreamTimeout)
}

// persist archives the image and writes the history row. Failures here are
// logged only; the caller already has its answer.
func (a *Analyzer) persist(ctx context.Context, log *slog.Logger, rec *domain.Analysis, img *llm.Image, runErr error) {
	if a.archive == nil && a.history == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if a.archive != nil {
		key, err := a.archive.Save(ctx, rec.ID, img.MIME, img.Data)
		if err != nil {
			log.Error("failed to archive image", "analysis_id", rec.ID, "error", err)
		} else {
			rec.ImageKey = key
		}
	}

	if a.history == nil {
		return
	}
	rec.Status = domain.AnalysisOK
	if runErr != nil {
		rec.Status = domain.AnalysisError
		rec.Error = runErr.Error()
	}
	if err := a.history.Create(ctx, rec); err != nil {
		log.Error("failed to record analysis", "analysis_id", rec.ID, "error", err)
	}
}
