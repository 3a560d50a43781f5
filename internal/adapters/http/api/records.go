package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/report"
)

// RecordsHandler serves resolved records.
type RecordsHandler struct {
	deps Dependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps Dependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

type categoryResponse struct {
	Game      string      `json:"game"`
	Category  string      `json:"category"`
	Records   []model.Run `json:"records"`
	Presented *model.Run  `json:"presented"`
	Time      string      `json:"time,omitempty"`
}

// HandleReport handles GET /records by running a fresh pass.
func (h *RecordsHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Report(r.Context())
	if err != nil {
		writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleCategory handles GET /records/{game}/{category}.
func (h *RecordsHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	game, category := r.PathValue("game"), r.PathValue("category")
	if strings.TrimSpace(game) == "" || strings.TrimSpace(category) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: game and category are required", ErrBadRequest))
		return
	}
	runs, err := h.deps.Resolve(r.Context(), game, category)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	resp := categoryResponse{Game: game, Category: category, Records: runs}
	if run, ok := h.deps.Present(runs); ok {
		resp.Presented = &run
		resp.Time = report.FormatDuration(run.Time)
	}
	writeJSON(w, http.StatusOK, resp)
}
