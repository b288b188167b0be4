package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/plancost/internal/analysis"
	"github.com/Veraticus/plancost/internal/cli"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Estimate a construction budget",
		Long: `Estimate a construction budget from plan images, from page extractions
collected earlier, or from the project description alone.`,
	}

	cmd.AddCommand(analyzePlansCmd())
	cmd.AddCommand(analyzeMergeCmd())
	cmd.AddCommand(analyzeManualCmd())

	return cmd
}

func analyzePlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans <image>...",
		Short: "Analyze plan page images",
		Long: `Send every plan page to the vision model, one at a time, and reconcile
the extractions into a budget.

Images may be local files, http(s) URLs, data URIs or s3://bucket/key
references when S3 is enabled.`,
		Example: `  plancost analyze plans rdc.png etage.png --area 640 --quality haut-de-gamme
  plancost analyze plans s3://plans/projet-42/p1.png --project projet-42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, model.ModePlans, func(ctx context.Context, engine *analysis.Engine, pc model.ProjectContext, progress service.ProgressCallback) (*analysis.Analysis, error) {
				return engine.AnalyzePlans(ctx, analysis.PlanRequest{
					Images:   args,
					Context:  pc,
					Progress: progress,
				})
			})
		},
	}
	addContextFlags(cmd)
	return cmd
}

func analyzeMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <extraction.json>...",
		Short: "Merge page extractions collected earlier",
		Long: `Reconcile page extractions that were produced separately, one file per
page, each holding the model's JSON reply for that page. No model call is
made.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages := make([]string, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read extraction: %w", err)
				}
				pages = append(pages, string(data))
			}

			return runAnalysis(cmd, model.ModeMerge, func(ctx context.Context, engine *analysis.Engine, pc model.ProjectContext, progress service.ProgressCallback) (*analysis.Analysis, error) {
				return engine.MergeExtractions(ctx, analysis.MergeRequest{
					Pages:    pages,
					Context:  pc,
					Progress: progress,
				})
			})
		},
	}
	addContextFlags(cmd)
	return cmd
}

func analyzeManualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Estimate from the project description alone",
		Example: `  plancost analyze manual --type "Garage détaché" --area 400 --garage \
    --choice roofingType=metal --notes "Garage double avec rangement"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd, model.ModeManual, func(ctx context.Context, engine *analysis.Engine, pc model.ProjectContext, progress service.ProgressCallback) (*analysis.Analysis, error) {
				return engine.AnalyzeManual(ctx, analysis.ManualRequest{
					Context:  pc,
					Progress: progress,
				})
			})
		},
	}
	addContextFlags(cmd)
	return cmd
}

type analyzeFunc func(ctx context.Context, engine *analysis.Engine, pc model.ProjectContext, progress service.ProgressCallback) (*analysis.Analysis, error)

// runAnalysis wires the engine, runs one analysis with a progress bar and
// interrupt handling, stores it when --project is set and prints it.
func runAnalysis(cmd *cobra.Command, mode model.AnalysisMode, run analyzeFunc) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	pc, err := projectContext(cmd)
	if err != nil {
		return err
	}
	projectID, _ := cmd.Flags().GetString("project")
	projectID = strings.TrimSpace(projectID)

	engine, _, err := newEngine(cmd.Context(), prometheus.NewRegistry(), mode != model.ModeMerge)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Aucun budget n'a été enregistré.")

	var progress service.ProgressCallback
	var bar *cli.Progress
	if format == "text" {
		bar = cli.NewProgress(cmd.ErrOrStderr(), progressLabel(mode))
		progress = bar.Callback()
	}

	res, err := run(ctx, engine, pc, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if handler.WasInterrupted() {
			return fmt.Errorf("analysis interrupted: %w", err)
		}
		return err
	}

	if projectID != "" {
		store, err := initStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := analysis.Record(cmd.Context(), store, projectID, res); err != nil {
			return err
		}
	}

	slog.Debug("Analysis complete",
		"mode", mode,
		"run", res.Result.RunID,
		"plans", res.Result.PlansAnalyzed,
		"skipped", res.Result.PagesSkipped)

	out := cmd.OutOrStdout()
	if format == "json" {
		return printJSON(out, res.Result)
	}
	if err := cli.RenderBudget(out, res.Result); err != nil {
		return err
	}
	if projectID != "" {
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Budget enregistré pour le projet %s", projectID)))
	}
	return nil
}

func progressLabel(mode model.AnalysisMode) string {
	switch mode {
	case model.ModePlans:
		return "Analyse des plans"
	case model.ModeMerge:
		return "Fusion des extractions"
	default:
		return "Estimation manuelle"
	}
}
