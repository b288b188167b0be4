package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/plancost/internal/cli"
	"github.com/Veraticus/plancost/internal/config"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
	"github.com/Veraticus/plancost/internal/service"
	"github.com/Veraticus/plancost/internal/sheets"
	"github.com/Veraticus/plancost/internal/totals"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect and edit stored project budgets",
	}

	cmd.AddCommand(budgetListCmd())
	cmd.AddCommand(budgetShowCmd())
	cmd.AddCommand(budgetRunsCmd())
	cmd.AddCommand(budgetDeleteCategoryCmd())
	cmd.AddCommand(budgetExportCmd())

	return cmd
}

func budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with a stored budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			projects, err := store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("Aucun budget enregistré"))
				return nil
			}
			for _, p := range projects {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}

func budgetShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <project>",
		Short: "Show a project's budget with recomputed totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			table, err := config.LoadPricingTable()
			if err != nil {
				return err
			}
			result, err := storedResult(cmd.Context(), store, table, args[0])
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			return cli.RenderStoredBudget(cmd.OutOrStdout(), args[0], result.Categories, result.Totals)
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	return cmd
}

func budgetRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <project>",
		Short: "List the analyses recorded for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.RenderRuns(cmd.OutOrStdout(), runs)
		},
	}
}

func budgetDeleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-category <project> <category>",
		Short: "Remove a category from a project's budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCategory(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			slog.Info("Category deleted", "project", args[0], "category", args[1])
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Catégorie « %s » supprimée", args[1])))
			return nil
		},
	}
}

func budgetExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Export a project's budget to Google Sheets",
		Long: `Write a project's stored budget to a Google Sheets spreadsheet.

Authenticate first with 'plancost auth sheets' or configure a service
account under sheets.service_account_path.`,
		Args: cobra.ExactArgs(1),
		RunE: runBudgetExport,
	}
	cmd.Flags().String("title", "", "spreadsheet title (default: sheets.spreadsheet_name)")
	return cmd
}

func runBudgetExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("google sheets is not configured: %w", err)
	}
	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return err
	}

	title, _ := cmd.Flags().GetString("title")
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("%s - %s", sheetsConfig.SpreadsheetName, args[0])
	}

	return exportBudget(ctx, cmd, writer, args[0], title)
}

func exportBudget(ctx context.Context, cmd *cobra.Command, exporter service.BudgetExporter, projectID, title string) error {
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	table, err := config.LoadPricingTable()
	if err != nil {
		return err
	}
	result, err := storedResult(ctx, store, table, projectID)
	if err != nil {
		return err
	}

	id, err := exporter.WriteBudget(ctx, title, result)
	if err != nil {
		return fmt.Errorf("failed to export budget: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Budget exporté"))
	fmt.Fprintf(cmd.OutOrStdout(), "https://docs.google.com/spreadsheets/d/%s\n", id)
	return nil
}

// storedResult rebuilds the downstream payload of a stored budget. Totals
// are recomputed from the stored categories; the project description and
// warnings come from the latest recorded run.
func storedResult(ctx context.Context, store service.Storage, table *pricing.Table, projectID string) (model.BudgetResult, error) {
	categories, err := store.GetBudget(ctx, projectID)
	if err != nil {
		return model.BudgetResult{}, err
	}

	t := model.RoundTotals(totals.ForTable(categories, table))
	result := model.BudgetResult{
		Categories:     model.ToBudgetCategories(categories),
		Totals:         t,
		EstimatedTotal: t.GrandTotal,
		PricingVersion: table.Version(),
	}

	runs, err := store.ListRuns(ctx, projectID)
	if err != nil {
		return model.BudgetResult{}, err
	}
	if len(runs) == 0 {
		return result, nil
	}

	var last model.BudgetResult
	if err := json.Unmarshal(runs[0].Payload, &last); err != nil {
		slog.Warn("Failed to decode latest run", "run", runs[0].ID, "error", err)
		result.RunID = runs[0].ID
		result.Mode = runs[0].Mode
		result.FinishQuality = runs[0].FinishQuality
		return result, nil
	}

	result.RunID = last.RunID
	result.Mode = last.Mode
	result.ProjectType = last.ProjectType
	result.ProjectSummary = last.ProjectSummary
	result.FinishQuality = last.FinishQuality
	result.Warnings = last.Warnings
	result.NewSquareFootage = last.NewSquareFootage
	result.PlansAnalyzed = last.PlansAnalyzed
	result.PagesSkipped = last.PagesSkipped
	result.ImagesSkipped = last.ImagesSkipped
	return result, nil
}
