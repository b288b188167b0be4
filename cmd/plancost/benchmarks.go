package main

import (
	"fmt"

	"github.com/Veraticus/plancost/internal/cli"
	"github.com/Veraticus/plancost/internal/config"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
	"github.com/spf13/cobra"
)

func benchmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "Show the pricing table used for estimates",
		Long: `Print the benchmark ranges, tax rates and trade materials used to fill
missing categories and price the budget.

Use --output yaml to get a starting point for pipeline.pricing_file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := config.LoadPricingTable()
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("output")
			switch format {
			case "yaml":
				data, err := pricing.Marshal(table)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			case "json":
				return printJSON(cmd.OutOrStdout(), table)
			case "text":
				return renderBenchmarks(cmd, table)
			default:
				return fmt.Errorf("unknown output format %q (valid: text, json, yaml)", format)
			}
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
	return cmd
}

func renderBenchmarks(cmd *cobra.Command, table *pricing.Table) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("Grille de prix "+table.Version()))
	for _, b := range table.Benchmarks {
		std := b.RangeFor(model.FinishStandard)
		unit := b.Unit
		if unit == "" {
			unit = string(b.Kind)
		}
		fmt.Fprintf(out, "  %-36s %s à %s (%s)\n", b.Name, cli.FormatMoney(std.Min), cli.FormatMoney(std.Max), unit)
	}
	fmt.Fprintf(out, "\nContingence %.0f %%, TPS %.3f %%, TVQ %.3f %%\n",
		table.Taxes.Contingency*100, table.Taxes.Federal*100, table.Taxes.Provincial*100)
	return nil
}
