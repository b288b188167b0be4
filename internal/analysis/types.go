package analysis

import (
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/service"
)

// PlanRequest asks for the analysis of plan page images.
type PlanRequest struct {
	// Progress receives per-page updates. Optional.
	Progress service.ProgressCallback
	// Images are page references understood by the image source, in page order.
	Images  []string
	Context model.ProjectContext
}

// MergeRequest carries page extractions collected earlier, one raw model
// reply per page.
type MergeRequest struct {
	Progress service.ProgressCallback
	Pages    []string
	Context  model.ProjectContext
}

// ManualRequest asks for an estimate from the client context alone.
type ManualRequest struct {
	Progress service.ProgressCallback
	Context  model.ProjectContext
}

// Stats describes what happened before the pure pipeline stages ran.
type Stats struct {
	// Notes are pipeline warnings shown ahead of the model's diagnostics.
	Notes         []string
	PlansAnalyzed int
	PagesSkipped  int
	ImagesSkipped int
}

// Analysis is the outcome of one run.
type Analysis struct {
	// Categories are the reconciled categories at full precision, as persisted.
	Categories []model.CostCategory
	Result     model.BudgetResult
}
