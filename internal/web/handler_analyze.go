package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/nutrisnap/internal/domain"
	"github.com/vbonduro/nutrisnap/internal/imagedata"
	"github.com/vbonduro/nutrisnap/internal/llm"
	"github.com/vbonduro/nutrisnap/internal/logging"
	"github.com/vbonduro/nutrisnap/internal/service"
	"github.com/vbonduro/nutrisnap/internal/vision"
)

// Messages returned to API callers.
const (
	msgMissingImage      = "Missing imageBase64 in request body"
	msgInvalidBody       = "Invalid request body"
	msgInvalidImage      = "Invalid imageBase64 payload"
	msgUnsupportedImage  = "Unsupported image format"
	msgNotConfigured     = "API Key not configured on the server."
	msgInvalidVision     = "Vision model failed to return a valid result."
	msgAnalysisFailed    = "Failed to analyze image on the server."
	analysisIDHeaderName = "X-Analysis-ID"
)

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type analyzeResponse struct {
	FoodItems []domain.NutritionRecord `json:"foodItems"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logging.FromContext(r.Context(), s.logger).Warn("invalid analyze request body", "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidBody, s.logger)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req.ImageBase64)
	if err != nil {
		status, msg := classifyError(err)
		if status >= http.StatusInternalServerError {
			logging.FromContext(r.Context(), s.logger).Error("analyze image failed", "error", err)
		}
		writeError(w, status, msg, s.logger)
		return
	}

	w.Header().Set(analysisIDHeaderName, result.ID)
	writeJSON(w, http.StatusOK, analyzeResponse{FoodItems: result.Foods}, s.logger)
}

// classifyError maps an analysis error to the status and message shown to the
// caller. Upstream detail only leaks when the upstream sent its own message.
func classifyError(err error) (int, string) {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, service.ErrMissingImage):
		return http.StatusBadRequest, msgMissingImage
	case errors.Is(err, imagedata.ErrInvalidImage):
		return http.StatusBadRequest, msgInvalidImage
	case errors.Is(err, imagedata.ErrUnsupportedImage):
		return http.StatusBadRequest, msgUnsupportedImage
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusInternalServerError, msgNotConfigured
	case errors.Is(err, vision.ErrInvalidModelOutput):
		return http.StatusInternalServerError, msgInvalidVision
	case errors.As(err, &llmErr) && llmErr.Message != "":
		return http.StatusInternalServerError, llmErr.Message
	default:
		return http.StatusInternalServerError, msgAnalysisFailed
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write json response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	writeJSON(w, status, errorResponse{Error: msg}, logger)
}
