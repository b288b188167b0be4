package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptBuilder renders the system, page and manual prompts.
type PromptBuilder struct {
	templates *template.Template
}

// NewPromptBuilder parses the embedded templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	funcMap := template.FuncMap{
		"formatArea": formatArea,
		"join":       strings.Join,
	}

	tmpl, err := template.New("prompts").Funcs(funcMap).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	return &PromptBuilder{templates: tmpl}, nil
}

// SystemData feeds the system prompt.
type SystemData struct {
	Region     string
	Categories []string
	Year       int
	LaborRate  float64
}

// ContextData feeds the page and manual prompts.
type ContextData struct {
	Tier       model.FinishQuality
	Categories []string
	Choices    []ChoiceLine
	Context    model.ProjectContext
	PageNumber int
	PageCount  int
}

// ChoiceLine is one client material choice rendered in a prompt.
type ChoiceLine struct {
	Trade    string
	Material string
}

// System renders the fixed system prompt for a pricing table.
func (pb *PromptBuilder) System(table *pricing.Table) (string, error) {
	return pb.render("system.tmpl", SystemData{
		Region:     table.Region,
		Year:       table.Year,
		LaborRate:  table.DefaultLaborRate,
		Categories: benchmarkNames(table),
	})
}

// Page renders the user prompt sent with one plan page.
func (pb *PromptBuilder) Page(table *pricing.Table, pc model.ProjectContext, page, count int) (string, error) {
	data := contextData(table, pc)
	data.PageNumber = page
	data.PageCount = count
	return pb.render("page.tmpl", data)
}

// Manual renders the text-only prompt built from the client context.
func (pb *PromptBuilder) Manual(table *pricing.Table, pc model.ProjectContext) (string, error) {
	return pb.render("manual.tmpl", contextData(table, pc))
}

func (pb *PromptBuilder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := pb.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func contextData(table *pricing.Table, pc model.ProjectContext) ContextData {
	data := ContextData{
		Context:    pc,
		Tier:       pc.Tier(),
		Categories: benchmarkNames(table),
	}

	trades := make([]string, 0, len(pc.MaterialChoices))
	for k := range pc.MaterialChoices {
		trades = append(trades, k)
	}
	sort.Strings(trades)
	for _, k := range trades {
		data.Choices = append(data.Choices, ChoiceLine{Trade: k, Material: pc.MaterialChoices[k]})
	}
	return data
}

func benchmarkNames(table *pricing.Table) []string {
	names := make([]string, 0, len(table.Benchmarks))
	for _, b := range table.Benchmarks {
		names = append(names, b.Name)
	}
	return names
}

func formatArea(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
