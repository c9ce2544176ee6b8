package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-sim/internal/dataset"
	"github.com/gkobilansky/ab-sim/internal/sample"
)

func newExportCmd() *cobra.Command {
	var (
		sim    simFlags
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export simulated outcome data",
		Long: `Simulate both groups and export the raw outcomes in CSV, JSON or XLSX format.
Each row holds a group label and a 0/1 outcome.

Examples:
  absim export --seed 42 --format csv > sim.csv
  absim export --n-a 5000 --n-b 5000 --format json
  absim export --format xlsx -o sim.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") && output != "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
			}
			f := dataset.Format(format)
			if f != dataset.FormatCSV && f != dataset.FormatJSON && f != dataset.FormatXLSX {
				return fmt.Errorf("invalid format: must be 'csv', 'json' or 'xlsx'")
			}
			if f == dataset.FormatXLSX && output == "" {
				return fmt.Errorf("xlsx export needs an output file (-o)")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			params := cfg.Simulation
			sim.apply(cmd.Flags(), &params)

			a, b, err := sample.Pair(params)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}

			return dataset.Write(w, dataset.FromSamples(a, b), f)
		},
	}

	sim.register(cmd.Flags())
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv, json or xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}
