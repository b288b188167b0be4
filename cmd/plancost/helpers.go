package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/plancost/internal/analysis"
	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/config"
	"github.com/Veraticus/plancost/internal/llm"
	"github.com/Veraticus/plancost/internal/metrics"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
	"github.com/Veraticus/plancost/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine wires the analysis engine from configuration. Without
// requireLLM a missing API key only disables the modes that call the model.
func newEngine(ctx context.Context, reg prometheus.Registerer, requireLLM bool) (*analysis.Engine, *pricing.Table, error) {
	table, err := config.LoadPricingTable()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pricing table: %w", err)
	}

	pipeline, err := config.LoadPipelineConfig()
	if err != nil {
		return nil, nil, err
	}

	deps := analysis.Deps{
		Pricing: table,
		Metrics: metrics.New(reg),
	}

	llmConfig, err := config.LoadLLMConfig()
	switch {
	case err == nil:
		client, clientErr := llm.NewClient(llmConfig)
		if clientErr != nil {
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", clientErr)
		}
		deps.LLM = client
	case requireLLM || !errors.Is(err, common.ErrMissingConfig):
		return nil, nil, err
	default:
		slog.Warn("No LLM API key configured, only merge analyses are available", "error", err)
	}

	images, err := config.NewImageSource(ctx, pipeline.MaxImageBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create image source: %w", err)
	}
	deps.Images = images

	engine, err := analysis.NewEngineWithConfig(deps, pipeline.Analysis)
	if err != nil {
		return nil, nil, err
	}
	return engine, table, nil
}

// addContextFlags registers the project context flags shared by the
// analyze subcommands.
func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("area", 0, "new floor area in square feet")
	cmd.Flags().Float64("foundation-area", 0, "foundation footprint in square feet")
	cmd.Flags().Int("floors", 0, "number of floors")
	cmd.Flags().Int("bathrooms", 0, "number of bathrooms")
	cmd.Flags().Bool("garage", false, "the project includes a garage")
	cmd.Flags().String("type", "", "project type (e.g. \"Agrandissement\")")
	cmd.Flags().String("quality", "standard", "finish quality (economique, standard, haut-de-gamme)")
	cmd.Flags().String("notes", "", "free-form notes about the project")
	cmd.Flags().StringArray("choice", nil, "material choice as trade=material (repeatable), e.g. roofingType=metal")
	cmd.Flags().String("project", "", "store the result as this project's budget")
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
}

// projectContext reads the context flags.
func projectContext(cmd *cobra.Command) (model.ProjectContext, error) {
	flags := cmd.Flags()
	area, _ := flags.GetFloat64("area")
	foundation, _ := flags.GetFloat64("foundation-area")
	floors, _ := flags.GetInt("floors")
	bathrooms, _ := flags.GetInt("bathrooms")
	garage, _ := flags.GetBool("garage")
	projectType, _ := flags.GetString("type")
	notes, _ := flags.GetString("notes")
	rawQuality, _ := flags.GetString("quality")
	rawChoices, _ := flags.GetStringArray("choice")

	if area < 0 || foundation < 0 || floors < 0 || bathrooms < 0 {
		return model.ProjectContext{}, fmt.Errorf("%w: context values cannot be negative", common.ErrInvalidArgument)
	}

	quality, err := model.ParseFinishQuality(rawQuality)
	if err != nil {
		return model.ProjectContext{}, err
	}

	choices, err := parseChoices(rawChoices)
	if err != nil {
		return model.ProjectContext{}, err
	}

	return model.ProjectContext{
		MaterialChoices: choices,
		ProjectType:     projectType,
		Notes:           notes,
		Quality:         quality,
		FloorArea:       area,
		FoundationArea:  foundation,
		FloorCount:      floors,
		BathroomCount:   bathrooms,
		HasGarage:       garage,
	}, nil
}

// parseChoices turns trade=material pairs into material choices.
func parseChoices(pairs []string) (model.MaterialChoices, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	choices := make(model.MaterialChoices, len(pairs))
	for _, pair := range pairs {
		trade, material, ok := strings.Cut(pair, "=")
		trade, material = strings.TrimSpace(trade), strings.TrimSpace(material)
		if !ok || trade == "" || material == "" {
			return nil, fmt.Errorf("%w: material choice %q must look like trade=material", common.ErrInvalidArgument, pair)
		}
		choices[trade] = material
	}
	return choices, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputFormat validates the --output flag.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "text", "json":
		return format, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (valid: text, json)", common.ErrInvalidArgument, format)
	}
}
