package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/totals"
	"github.com/go-chi/chi/v5"
)

type budgetResponse struct {
	ProjectID  string                 `json:"projectId"`
	Categories []model.BudgetCategory `json:"categories"`
	Totals     model.ProjectTotals    `json:"totauxDetails"`
}

func (h *handlers) benchmarks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Pricing)
}

func (h *handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.deps.Store.ListProjects(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if projects == nil {
		projects = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"projects": projects})
}

func (h *handlers) getBudget(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	categories, err := h.deps.Store.GetBudget(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.writeBudget(w, projectID, categories)
}

// writeBudget answers with the categories and totals recomputed from them.
func (h *handlers) writeBudget(w http.ResponseWriter, projectID string, categories []model.CostCategory) {
	writeJSON(w, http.StatusOK, budgetResponse{
		ProjectID:  projectID,
		Categories: model.ToBudgetCategories(categories),
		Totals:     model.RoundTotals(totals.ForTable(categories, h.deps.Pricing)),
	})
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	name := categoryParam(r)
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "category name is required")
		return
	}

	if err := h.deps.Store.DeleteCategory(r.Context(), projectID, name); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	categories, err := h.deps.Store.GetBudget(r.Context(), projectID)
	if err != nil {
		// Deleting the last category leaves no budget behind.
		if status, _ := classify(err); status == http.StatusNotFound {
			h.writeBudget(w, projectID, nil)
			return
		}
		writeDomainError(w, h.logger, err)
		return
	}
	h.writeBudget(w, projectID, categories)
}

func (h *handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	name := categoryParam(r)
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || position < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "position must be a non-negative integer")
		return
	}

	var item model.LineItem
	if !decodeBody(w, r, maxSmallBody, &item) {
		return
	}

	if err := h.deps.Store.UpdateItem(r.Context(), projectID, name, position, item); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	categories, err := h.deps.Store.GetBudget(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.writeBudget(w, projectID, categories)
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.deps.Store.ListRuns(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if runs == nil {
		runs = []model.AnalysisRun{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.AnalysisRun{"runs": runs})
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.Store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if run.ProjectID != chi.URLParam(r, "projectID") {
		writeError(w, http.StatusNotFound, "not_found", "run not found for this project")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func categoryParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		raw = name
	}
	return strings.TrimSpace(raw)
}
