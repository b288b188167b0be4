package merge

import (
	"log/slog"
	"strings"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/normalize"
)

// Result is the merged view of every page of a plan set.
type Result struct {
	Strategies      map[string]Strategy
	PagesSeen       map[string]int
	ProjectType     string
	Summary         string
	Categories      []model.CostCategory
	MissingElements []string
	Ambiguities     []string
	Inconsistencies []string
	FloorArea       float64
	FloorCount      int
}

// Merger folds page extractions together.
type Merger struct {
	policy Policy
	keyFn  func(string) string
}

// NewMerger creates a merger. A nil policy means MaxPolicy; a nil key
// function means normalize.CategoryKey.
func NewMerger(policy Policy, keyFn func(string) string) *Merger {
	if policy == nil {
		policy = MaxPolicy{}
	}
	if keyFn == nil {
		keyFn = normalize.CategoryKey
	}
	return &Merger{policy: policy, keyFn: keyFn}
}

type categoryVersions struct {
	perPage []model.CostCategory
}

// Merge combines pages in order. Category totals in the result do not depend
// on page order; display names, sources and hints come from the first page
// that provides them.
func (m *Merger) Merge(pages []model.PageExtraction) Result {
	res := Result{
		Categories: []model.CostCategory{},
		Strategies: make(map[string]Strategy),
		PagesSeen:  make(map[string]int),
	}

	var order []string
	versions := make(map[string]*categoryVersions)
	missing := newStringSet()
	ambiguities := newStringSet()
	inconsistencies := newStringSet()

	for _, page := range pages {
		pageCats := make(map[string]model.CostCategory)
		var pageOrder []string

		for _, c := range page.Categories {
			if strings.TrimSpace(c.Name) == "" {
				slog.Debug("Dropping unnamed category", "page", page.Label, "items", len(c.Items))
				continue
			}
			key := m.keyFn(c.Name)
			if existing, ok := pageCats[key]; ok {
				// the same page listing a category twice is a repeat, not an addition
				pageCats[key] = MergeCategories(existing, c, StrategyMax)
				continue
			}
			pageCats[key] = c.Clone()
			pageOrder = append(pageOrder, key)
		}

		for _, key := range pageOrder {
			v, ok := versions[key]
			if !ok {
				v = &categoryVersions{}
				versions[key] = v
				order = append(order, key)
			}
			v.perPage = append(v.perPage, pageCats[key])
		}

		missing.add(page.MissingElements...)
		ambiguities.add(page.Ambiguities...)
		inconsistencies.add(page.Inconsistencies...)

		if res.ProjectType == "" {
			res.ProjectType = strings.TrimSpace(page.ProjectTypeHint)
		}
		if res.FloorArea <= 0 && page.NewFloorAreaHint > 0 {
			res.FloorArea = page.NewFloorAreaHint
		}
		if res.FloorCount <= 0 && page.FloorCountHint > 0 {
			res.FloorCount = page.FloorCountHint
		}
		if res.Summary == "" {
			res.Summary = strings.TrimSpace(page.Summary)
		}
	}

	for _, key := range order {
		v := versions[key]

		seen := 0
		for _, c := range v.perPage {
			if c.ComputedTotal() > 0 {
				seen++
			}
		}
		strategy := m.policy.Strategy(key, seen)
		res.Strategies[key] = strategy
		res.PagesSeen[key] = seen

		var merged model.CostCategory
		for _, c := range v.perPage {
			merged = MergeCategories(merged, c, strategy)
		}
		res.Categories = append(res.Categories, merged)
	}

	res.MissingElements = missing.values
	res.Ambiguities = ambiguities.values
	res.Inconsistencies = inconsistencies.values
	return res
}

// MergeCategories combines two versions of the same category into a new one.
// Neither input is modified.
func MergeCategories(a, b model.CostCategory, s Strategy) model.CostCategory {
	return model.CostCategory{
		Name:              firstNonEmpty(a.Name, b.Name),
		Description:       firstNonEmpty(a.Description, b.Description),
		MaterialsSubtotal: combine(a.MaterialsSubtotal, b.MaterialsSubtotal, s),
		LaborHours:        combine(a.LaborHours, b.LaborHours, s),
		LaborSubtotal:     combine(a.LaborSubtotal, b.LaborSubtotal, s),
		CategoryTotal:     combine(a.CategoryTotal, b.CategoryTotal, s),
		LaborRate:         max(positive(a.LaborRate), positive(b.LaborRate)),
		Items:             mergeItemLists(s, a.Items, b.Items),
		AlternativeItems:  nilIfEmpty(mergeItemLists(StrategyMax, a.AlternativeItems, b.AlternativeItems)),
	}
}

// MergeItems combines two line items that share a key.
func MergeItems(a, b model.LineItem, s Strategy) model.LineItem {
	out := model.LineItem{
		Description:   firstNonEmpty(a.Description, b.Description),
		Unit:          firstNonEmpty(a.Unit, b.Unit),
		Source:        firstNonEmpty(a.Source, b.Source),
		Confidence:    a.Confidence,
		UnitPrice:     max(positive(a.UnitPrice), positive(b.UnitPrice)),
		IsAlternative: a.IsAlternative && b.IsAlternative,
	}
	if b.Confidence.Rank() > a.Confidence.Rank() {
		out.Confidence = b.Confidence
	}

	switch s {
	case StrategySum:
		out.Quantity = positive(a.Quantity) + positive(b.Quantity)
		out.Total = positive(a.Total) + positive(b.Total)
	default:
		out.Quantity = max(positive(a.Quantity), positive(b.Quantity))
		out.Total = max(positive(a.Total), positive(b.Total))
	}
	return out
}

func mergeItemLists(s Strategy, lists ...[]model.LineItem) []model.LineItem {
	out := []model.LineItem{}
	index := make(map[string]int)
	for _, list := range lists {
		for _, item := range list {
			key := normalize.ItemKey(item.Description, item.Unit)
			if i, ok := index[key]; ok {
				out[i] = MergeItems(out[i], item, s)
				continue
			}
			index[key] = len(out)
			item.Quantity = positive(item.Quantity)
			item.Total = positive(item.Total)
			item.UnitPrice = positive(item.UnitPrice)
			out = append(out, item)
		}
	}
	return out
}

func combine(a, b float64, s Strategy) float64 {
	if s == StrategySum {
		return positive(a) + positive(b)
	}
	return max(positive(a), positive(b))
}

func positive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nilIfEmpty(items []model.LineItem) []model.LineItem {
	if len(items) == 0 {
		return nil
	}
	return items
}

type stringSet struct {
	seen   map[string]struct{}
	values []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{}), values: []string{}}
}

func (s *stringSet) add(values ...string) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.values = append(s.values, v)
	}
}
