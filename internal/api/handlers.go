package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/warroomstack/warroom-rca/internal/models"
	"github.com/warroomstack/warroom-rca/internal/services"
	"github.com/warroomstack/warroom-rca/internal/utils"
)

const maxBodyBytes = 32 << 20

type handlers struct {
	service *services.AnalysisService
	logger  *slog.Logger
}

func (h *handlers) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /api/v1/reports", h.handleListReports)
	mux.HandleFunc("GET /api/v1/reports/{id}", h.handleGetReport)
	mux.HandleFunc("GET /api/v1/patterns", h.handlePatterns)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (h *handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var batch models.Batch
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch payload: "+err.Error())
		return
	}

	report, err := h.service.Analyze(r.Context(), batch)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidConfiguration) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("analyze failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	reports, err := h.service.ListReports(r.Context(), limit)
	if err != nil {
		h.logger.Error("list reports failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := utils.ParseRFC3339(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		reports = filterSince(reports, since)
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *handlers) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	report, err := h.service.GetReport(r.Context(), runID)
	if errors.Is(err, services.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.logger.Error("get report failed", slog.String("run_id", runID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to fetch report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) handlePatterns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	mined, err := h.service.Patterns(r.Context(), limit)
	if err != nil {
		h.logger.Error("patterns failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to mine patterns")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": mined})
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func filterSince(reports []models.AnalysisReport, since time.Time) []models.AnalysisReport {
	filtered := make([]models.AnalysisReport, 0, len(reports))
	for _, report := range reports {
		if report.CreatedAt.Before(since) {
			continue
		}
		filtered = append(filtered, report)
	}
	return filtered
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
