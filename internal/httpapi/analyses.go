package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/plancost/internal/analysis"
	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/model"
)

type plansRequest struct {
	ProjectID string               `json:"projectId"`
	Images    []string             `json:"images"`
	Context   model.ProjectContext `json:"context"`
}

type mergeRequest struct {
	ProjectID string               `json:"projectId"`
	Pages     []json.RawMessage    `json:"pages"`
	Context   model.ProjectContext `json:"context"`
}

type manualRequest struct {
	ProjectID string               `json:"projectId"`
	Context   model.ProjectContext `json:"context"`
}

type analysisResponse struct {
	ProjectID string `json:"projectId,omitempty"`
	model.BudgetResult
}

func (h *handlers) analyzePlans(w http.ResponseWriter, r *http.Request) {
	var req plansRequest
	if !decodeBody(w, r, maxAnalysisBody, &req) {
		return
	}
	if !normalizeContext(w, &req.Context) {
		return
	}
	if len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "images is required")
		return
	}

	res, err := h.deps.Analyzer.AnalyzePlans(r.Context(), analysis.PlanRequest{
		Images:  req.Images,
		Context: req.Context,
	})
	h.finish(w, r, req.ProjectID, res, err)
}

func (h *handlers) mergeExtractions(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decodeBody(w, r, maxAnalysisBody, &req) {
		return
	}
	if !normalizeContext(w, &req.Context) {
		return
	}
	if len(req.Pages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "pages is required")
		return
	}

	pages := make([]string, 0, len(req.Pages))
	for i, raw := range req.Pages {
		page, err := pageText(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("pages[%d]: %v", i, err))
			return
		}
		pages = append(pages, page)
	}

	res, err := h.deps.Analyzer.MergeExtractions(r.Context(), analysis.MergeRequest{
		Pages:   pages,
		Context: req.Context,
	})
	h.finish(w, r, req.ProjectID, res, err)
}

func (h *handlers) analyzeManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !decodeBody(w, r, maxSmallBody, &req) {
		return
	}
	if !normalizeContext(w, &req.Context) {
		return
	}

	res, err := h.deps.Analyzer.AnalyzeManual(r.Context(), analysis.ManualRequest{Context: req.Context})
	h.finish(w, r, req.ProjectID, res, err)
}

// finish persists the analysis when a project is named and writes the result.
func (h *handlers) finish(w http.ResponseWriter, r *http.Request, projectID string, res *analysis.Analysis, err error) {
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	projectID = strings.TrimSpace(projectID)
	if projectID != "" {
		if err := analysis.Record(r.Context(), h.deps.Store, projectID, res); err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, analysisResponse{ProjectID: projectID, BudgetResult: res.Result})
}

// pageText accepts a stored extraction either as a JSON string holding the
// raw model reply or as the extraction object itself.
func pageText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: empty page", common.ErrInvalidArgument)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

func normalizeContext(w http.ResponseWriter, pc *model.ProjectContext) bool {
	q, err := model.ParseFinishQuality(string(pc.Quality))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	pc.Quality = q
	if pc.FloorArea < 0 || pc.FoundationArea < 0 || pc.FloorCount < 0 || pc.BathroomCount < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "context values cannot be negative")
		return false
	}
	return true
}
