package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/nutrisnap/internal/domain"
	"github.com/vbonduro/nutrisnap/internal/photostore"
	"github.com/vbonduro/nutrisnap/internal/store"
)

const maxListLimit = 200

type analysisSummary struct {
	ID          string                   `json:"id"`
	Status      string                   `json:"status"`
	Error       string                   `json:"error,omitempty"`
	VisionModel string                   `json:"visionModel"`
	TextModel   string                   `json:"textModel"`
	HasImage    bool                     `json:"hasImage"`
	FoodItems   []domain.NutritionRecord `json:"foodItems"`
	CreatedAt   time.Time                `json:"createdAt"`
}

type analysisDetail struct {
	analysisSummary
	VisionRaw    string `json:"visionRaw"`
	NutritionRaw string `json:"nutritionRaw"`
}

func toSummary(a *domain.Analysis) analysisSummary {
	foods := a.Foods
	if foods == nil {
		foods = []domain.NutritionRecord{}
	}
	return analysisSummary{
		ID:          a.ID,
		Status:      a.Status,
		Error:       a.Error,
		VisionModel: a.VisionModel,
		TextModel:   a.TextModel,
		HasImage:    a.ImageKey != "",
		FoodItems:   foods,
		CreatedAt:   a.CreatedAt,
	}
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", s.logger)
			return
		}
		limit = min(n, maxListLimit)
	}

	analyses, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list analyses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list analyses", s.logger)
		return
	}

	out := make([]analysisSummary, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, toSummary(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": out}, s.logger)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookupAnalysis(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysisDetail{
		analysisSummary: toSummary(a),
		VisionRaw:       a.VisionRaw,
		NutritionRaw:    a.NutritionRaw,
	}, s.logger)
}

func (s *Server) handleGetAnalysisImage(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.NotFound(w, r)
		return
	}
	a, ok := s.lookupAnalysis(w, r)
	if !ok {
		return
	}
	if a.ImageKey == "" {
		writeError(w, http.StatusNotFound, "image not archived", s.logger)
		return
	}

	reader, mimeType, err := s.archive.Get(r.Context(), a.ImageKey)
	if errors.Is(err, photostore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "image not archived", s.logger)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "get archived image failed", "analysis_id", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load image", s.logger)
		return
	}
	defer closeWithLog(reader, "archived image", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "analysis_id", a.ID, "error", err)
	}
}

// handleDeleteAnalysis removes the history row and, when archived, its image.
// An image already missing from the archive does not fail the request.
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookupAnalysis(w, r)
	if !ok {
		return
	}

	if err := s.history.Delete(r.Context(), a.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found", s.logger)
			return
		}
		s.logger.ErrorContext(r.Context(), "delete analysis failed", "analysis_id", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete analysis", s.logger)
		return
	}

	if s.archive != nil && a.ImageKey != "" {
		err := s.archive.Delete(r.Context(), a.ImageKey)
		switch {
		case errors.Is(err, photostore.ErrNotFound):
			s.logger.WarnContext(r.Context(), "archived image already gone", "analysis_id", a.ID, "key", a.ImageKey)
		case err != nil:
			s.logger.ErrorContext(r.Context(), "delete archived image failed", "analysis_id", a.ID, "key", a.ImageKey, "error", err)
		}
	}

	s.logger.InfoContext(r.Context(), "analysis deleted", "analysis_id", a.ID)
	w.WriteHeader(http.StatusNoContent)
}

// lookupAnalysis resolves {id} and writes the error response itself when the
// analysis cannot be returned.
func (s *Server) lookupAnalysis(w http.ResponseWriter, r *http.Request) (*domain.Analysis, bool) {
	if s.history == nil {
		http.NotFound(w, r)
		return nil, false
	}

	id := r.PathValue("id")
	a, err := s.history.GetByID(r.Context(), id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "get analysis failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get analysis", s.logger)
		return nil, false
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "analysis not found", s.logger)
		return nil, false
	}
	return a, true
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
