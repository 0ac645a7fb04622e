package reports

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/de-tools/workspace-monitor/pkg/models/api"
	"github.com/de-tools/workspace-monitor/pkg/models/domain"
	"github.com/de-tools/workspace-monitor/pkg/services/dashboard"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	store dashboard.LatestReader
}

func NewHandler(store dashboard.LatestReader) *Handler {
	return &Handler{store: store}
}

func (h *Handler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	category, err := domain.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, api.Error{Error: err.Error()})
		return
	}

	doc, ok, err := h.store.Latest(category)
	if err != nil {
		logger.Error().Err(err).Str("category", string(category)).Msg("failed to resolve latest report")
		writeJSON(w, http.StatusInternalServerError, api.Error{Error: "failed to resolve latest report"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, api.Error{
			Error: "no report stored for category " + string(category),
		})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	snap, err := dashboard.Aggregate(ctx, h.store, domain.AllCategories())
	if err != nil {
		var incomplete *domain.IncompleteDataError
		if errors.As(err, &incomplete) {
			missing := make([]string, len(incomplete.Missing))
			for i, c := range incomplete.Missing {
				missing[i] = string(c)
			}
			writeJSON(w, http.StatusServiceUnavailable, api.Error{
				Error:   "dashboard data incomplete",
				Missing: missing,
			})
			return
		}
		logger.Error().Err(err).Msg("dashboard aggregation failed")
		writeJSON(w, http.StatusInternalServerError, api.Error{Error: "dashboard aggregation failed"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
