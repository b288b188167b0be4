package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/plancost/internal/model"
)

// Page is the JSON shape the vision model is asked to produce.
type Page struct {
	ProjectType  Text       `json:"type_projet"`
	Summary      Text       `json:"resume_projet"`
	Categories   []Category `json:"categories"`
	Missing      TextList   `json:"elements_manquants"`
	Ambiguities  TextList   `json:"ambiguites"`
	Inconsistent TextList   `json:"incoherences"`
	NewFloorArea Number     `json:"superficie_nouvelle_pi2"`
	FloorCount   Number     `json:"nombre_etages"`
}

// Category is one cost category of a Page.
type Category struct {
	Name          Text   `json:"nom"`
	Description   Text   `json:"description"`
	Items         []Item `json:"items"`
	Materials     Number `json:"sous_total_materiaux"`
	LaborHours    Number `json:"heures_main_oeuvre"`
	LaborRate     Number `json:"taux_horaire"`
	Labor         Number `json:"sous_total_main_oeuvre"`
	CategoryTotal Number `json:"total_categorie"`
}

// Item is one line item of a Category.
type Item struct {
	Description Text   `json:"description"`
	Unit        Text   `json:"unite"`
	Source      Text   `json:"source"`
	Confidence  Text   `json:"confiance"`
	Quantity    Number `json:"quantite"`
	UnitPrice   Number `json:"prix_unitaire"`
	Total       Number `json:"total"`
}

// Parse repairs text and decodes it into a PageExtraction labeled label.
// Items without a source are attributed to the label.
func Parse(text, label string) (model.PageExtraction, error) {
	repaired, err := Repair(text)
	if err != nil {
		return model.PageExtraction{}, err
	}

	var page Page
	if err := json.Unmarshal([]byte(repaired), &page); err != nil {
		line, col, excerpt := ErrorContext([]byte(repaired), err)
		slog.Debug("Extraction did not decode",
			"page", label,
			"line", line,
			"column", col,
			"excerpt", excerpt,
			"error", err)
		return model.PageExtraction{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	return page.ToModel(label), nil
}

// ToModel converts the wire shape to a PageExtraction.
func (p Page) ToModel(label string) model.PageExtraction {
	out := model.PageExtraction{
		Label:            label,
		ProjectTypeHint:  strings.TrimSpace(string(p.ProjectType)),
		Summary:          strings.TrimSpace(string(p.Summary)),
		Categories:       make([]model.CostCategory, 0, len(p.Categories)),
		MissingElements:  []string(p.Missing),
		Ambiguities:      []string(p.Ambiguities),
		Inconsistencies:  []string(p.Inconsistent),
		NewFloorAreaHint: float64(p.NewFloorArea),
		FloorCountHint:   int(p.FloorCount),
	}

	for _, c := range p.Categories {
		cat := model.CostCategory{
			Name:              strings.TrimSpace(string(c.Name)),
			Description:       strings.TrimSpace(string(c.Description)),
			Items:             make([]model.LineItem, 0, len(c.Items)),
			MaterialsSubtotal: float64(c.Materials),
			LaborHours:        float64(c.LaborHours),
			LaborRate:         float64(c.LaborRate),
			LaborSubtotal:     float64(c.Labor),
			CategoryTotal:     float64(c.CategoryTotal),
		}
		for _, it := range c.Items {
			source := strings.TrimSpace(string(it.Source))
			if source == "" {
				source = label
			}
			cat.Items = append(cat.Items, model.LineItem{
				Description: strings.TrimSpace(string(it.Description)),
				Unit:        strings.TrimSpace(string(it.Unit)),
				Source:      source,
				Confidence:  model.ParseConfidence(string(it.Confidence)),
				Quantity:    float64(it.Quantity),
				UnitPrice:   float64(it.UnitPrice),
				Total:       float64(it.Total),
			})
		}
		out.Categories = append(out.Categories, cat)
	}
	return out
}

// FromModel converts a PageExtraction back to the wire shape, used to store
// and replay extractions.
func FromModel(pe model.PageExtraction) Page {
	p := Page{
		ProjectType:  Text(pe.ProjectTypeHint),
		Summary:      Text(pe.Summary),
		Categories:   make([]Category, 0, len(pe.Categories)),
		Missing:      TextList(pe.MissingElements),
		Ambiguities:  TextList(pe.Ambiguities),
		Inconsistent: TextList(pe.Inconsistencies),
		NewFloorArea: Number(pe.NewFloorAreaHint),
		FloorCount:   Number(pe.FloorCountHint),
	}
	for _, c := range pe.Categories {
		wc := Category{
			Name:          Text(c.Name),
			Description:   Text(c.Description),
			Items:         make([]Item, 0, len(c.Items)),
			Materials:     Number(c.MaterialsSubtotal),
			LaborHours:    Number(c.LaborHours),
			LaborRate:     Number(c.LaborRate),
			Labor:         Number(c.LaborSubtotal),
			CategoryTotal: Number(c.CategoryTotal),
		}
		for _, it := range c.Items {
			wc.Items = append(wc.Items, Item{
				Description: Text(it.Description),
				Unit:        Text(it.Unit),
				Source:      Text(it.Source),
				Confidence:  Text(it.Confidence),
				Quantity:    Number(it.Quantity),
				UnitPrice:   Number(it.UnitPrice),
				Total:       Number(it.Total),
			})
		}
		p.Categories = append(p.Categories, wc)
	}
	return p
}

// Number decodes JSON numbers as well as strings such as "1 800,50 $".
// Values that cannot be read decode as zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(ParseAmount(s))
		return nil
	}
	if data[0] == 't' || data[0] == 'f' || data[0] == '{' || data[0] == '[' {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		f = 0
	}
	*n = Number(f)
	return nil
}

// ParseAmount reads the first French or English formatted amount in s.
// Currency symbols and thousands spaces are ignored and reading stops at the
// first letter after the digits. A lone comma is a decimal separator unless
// followed by exactly three digits.
func ParseAmount(s string) float64 {
	var b strings.Builder
	started := false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			started = true
			b.WriteRune(r)
		case r == '.' || r == ',':
			if started {
				b.WriteRune(r)
			}
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '\'':
			// thousands separators
		default:
			if started {
				break scan
			}
		}
	}
	num := strings.Trim(b.String(), ".,")
	if num == "" || num == "-" {
		return 0
	}

	lastDot := strings.LastIndexByte(num, '.')
	lastComma := strings.LastIndexByte(num, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(num, ",") > 1 || len(num)-lastComma-1 == 3 {
			num = strings.ReplaceAll(num, ",", "")
		} else {
			num = strings.Replace(num, ",", ".", 1)
		}
	case strings.Count(num, ".") > 1:
		num = strings.ReplaceAll(num, ".", "")
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	return f
}

// Text decodes any JSON scalar as a string.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(data)
	}
	return nil
}

// TextList decodes a list of diagnostics. It accepts a single string, an
// array of strings, or an array of objects carrying a description.
type TextList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *TextList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] != '[' {
		var t Text
		if err := t.UnmarshalJSON(data); err != nil {
			return err
		}
		if s := strings.TrimSpace(string(t)); s != "" {
			*l = TextList{s}
		}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(TextList, 0, len(raw))
	for _, r := range raw {
		if s := describe(r); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

var descriptionKeys = []string{"description", "message", "element", "texte", "detail", "nom"}

func describe(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil {
			for _, k := range descriptionKeys {
				if v, ok := obj[k].(string); ok && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
		}
		return string(raw)
	}
	var t Text
	if err := t.UnmarshalJSON(raw); err != nil {
		return ""
	}
	return strings.TrimSpace(string(t))
}
