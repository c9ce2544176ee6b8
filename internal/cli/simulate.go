package cli

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gkobilansky/ab-sim/internal/report"
	"github.com/gkobilansky/ab-sim/internal/sample"
)

func newSimulateCmd() *cobra.Command {
	var (
		sim         simFlags
		power       powerFlags
		asJSON      bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate an A/B test and report the results",
		Long: `Simulate conversions for groups A and B and report their statistics.

Examples:
  absim simulate --n-a 1000 --p-a 0.10 --n-b 1000 --p-b 0.12
  absim simulate --seed 42 --json
  absim simulate -i`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			params := cfg.Simulation
			sim.apply(cmd.Flags(), &params)
			if interactive {
				if params, err = promptParams(params); err != nil {
					return err
				}
			}

			a, b, err := sample.Pair(params)
			if err != nil {
				return err
			}

			rep, err := report.Build(report.Input{
				Source: report.SourceSimulated,
				A:      a,
				B:      b,
				Power:  power.queryFrom(cmd, cfg),
			})
			if err != nil {
				return err
			}
			logger.Debug("simulation complete",
				zap.String("report_id", rep.ID),
				zap.Uint64("seed", params.Seed),
				zap.Float64("p_value", rep.Comparison.PValue),
			)

			return writeReport(cmd, rep, asJSON)
		},
	}

	sim.register(cmd.Flags())
	power.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for the simulation parameters")

	return cmd
}

func writeReport(cmd *cobra.Command, rep *report.Report, asJSON bool) error {
	if asJSON {
		return report.WriteJSON(cmd.OutOrStdout(), rep)
	}
	return report.WriteText(cmd.OutOrStdout(), rep)
}

// promptParams asks for each simulation parameter, offering p as defaults.
func promptParams(p sample.Params) (sample.Params, error) {
	var err error
	if p.NA, err = promptInt("Sample size: Group A", p.NA); err != nil {
		return p, err
	}
	if p.PA, err = promptRate("Conversion rate: Group A", p.PA); err != nil {
		return p, err
	}
	if p.NB, err = promptInt("Sample size: Group B", p.NB); err != nil {
		return p, err
	}
	if p.PB, err = promptRate("Conversion rate: Group B", p.PB); err != nil {
		return p, err
	}
	return p, nil
}

func promptInt(label string, def int) (int, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(def),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 {
				return fmt.Errorf("enter a whole number of at least 1")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(result)
}

func promptRate(label string, def float64) (float64, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: strconv.FormatFloat(def, 'f', -1, 64),
		Validate: func(input string) error {
			p, err := strconv.ParseFloat(input, 64)
			if err != nil || p < 0 || p > 1 {
				return fmt.Errorf("enter a rate between 0 and 1")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(result, 64)
}
