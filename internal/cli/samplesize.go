package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-sim/internal/report"
	"github.com/gkobilansky/ab-sim/internal/stats"
)

func newSampleSizeCmd() *cobra.Command {
	var (
		power  powerFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "samplesize",
		Short: "Compute the sample size needed per group",
		Long: `Compute the per-group sample size a two-sample t-test needs to detect
an effect at alpha 0.05 (two-sided) with the given power.

By default --mde is a standardized effect size (Cohen's d). With
--scale proportion it is an absolute lift over --baseline.

Examples:
  absim samplesize --mde 0.05 --power 0.8
  absim samplesize --mde 0.02 --scale proportion --baseline 0.10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			q := power.queryFrom(cmd, cfg)

			n, err := stats.RequiredSampleSize(*q)
			if err != nil {
				return err
			}
			result := &report.SampleSizeResult{Query: *q, PerGroup: n}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.SampleSizeSentence(result))
			return nil
		},
	}

	power.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}
