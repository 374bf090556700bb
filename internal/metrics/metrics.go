package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/nutrisnap/internal/domain"
)

const namespace = "nutrisnap"

// Stage labels.
const (
	StageVision    = "vision"
	StageNutrition = "nutrition"
)

type Metrics struct {
	// AnalysesTotal counts analyze requests by outcome.
	AnalysesTotal *prometheus.CounterVec
	// StageDuration records upstream call latency per stage and outcome.
	StageDuration *prometheus.HistogramVec
	// FoodsIdentified records how many foods each vision reply yielded.
	FoodsIdentified prometheus.Histogram
	// NutrientFailures counts unresolved nutrient fields by field and reason.
	NutrientFailures *prometheus.CounterVec
	// TokensTotal counts model tokens by stage and direction.
	TokensTotal *prometheus.CounterVec
	// HTTPRequests counts served HTTP requests by route and status code.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration records HTTP handler latency by route.
	HTTPDuration *prometheus.HistogramVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total number of image analyses by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "stage_duration_seconds",
				Help:      "Upstream model call duration in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"stage", "outcome"},
		),
		FoodsIdentified: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "foods_identified",
				Help:      "Number of foods identified per image",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 20},
			},
		),
		NutrientFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "nutrient_failures_total",
				Help:      "Nutrient fields that could not be resolved",
			},
			[]string{"field", "reason"},
		),
		TokensTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "tokens_total",
				Help:      "Model tokens consumed",
			},
			[]string{"stage", "direction"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) ObserveStage(stage string, err error, d time.Duration) {
	m.StageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) ObserveAnalysis(err error) {
	m.AnalysesTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveTokens(stage string, in, out int) {
	m.TokensTotal.WithLabelValues(stage, "input").Add(float64(in))
	m.TokensTotal.WithLabelValues(stage, "output").Add(float64(out))
}

// ObserveRecords counts every nutrient field that is not a real value.
func (m *Metrics) ObserveRecords(records []domain.NutritionRecord) {
	for _, r := range records {
		for field, v := range r.Fields() {
			if v.OK() {
				continue
			}
			switch v.Status {
			case domain.NutrientParseFailed:
				m.NutrientFailures.WithLabelValues(field, "parse").Inc()
			case domain.NutrientFetchFailed:
				m.NutrientFailures.WithLabelValues(field, "fetch").Inc()
			}
		}
	}
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
