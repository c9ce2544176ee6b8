package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gkobilansky/ab-sim/internal/config"
	"github.com/gkobilansky/ab-sim/internal/sample"
	"github.com/gkobilansky/ab-sim/internal/stats"
)

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// simFlags are the simulation parameters shared by simulate and export.
// Flags override configuration only when set on the command line.
type simFlags struct {
	params sample.Params
}

func (f *simFlags) register(fs *pflag.FlagSet) {
	d := config.Default().Simulation
	fs.IntVar(&f.params.NA, "n-a", d.NA, "sample size of group A")
	fs.Float64Var(&f.params.PA, "p-a", d.PA, "conversion rate of group A")
	fs.IntVar(&f.params.NB, "n-b", d.NB, "sample size of group B")
	fs.Float64Var(&f.params.PB, "p-b", d.PB, "conversion rate of group B")
	fs.Uint64Var(&f.params.Seed, "seed", 0, "random seed (0 = non-deterministic)")
}

func (f *simFlags) apply(fs *pflag.FlagSet, p *sample.Params) {
	if fs.Changed("n-a") {
		p.NA = f.params.NA
	}
	if fs.Changed("p-a") {
		p.PA = f.params.PA
	}
	if fs.Changed("n-b") {
		p.NB = f.params.NB
	}
	if fs.Changed("p-b") {
		p.PB = f.params.PB
	}
	if fs.Changed("seed") {
		p.Seed = f.params.Seed
	}
}

// powerFlags are the sample-size parameters.
type powerFlags struct {
	query stats.PowerQuery
	scale string
}

func (f *powerFlags) register(fs *pflag.FlagSet) {
	d := config.Default().Power
	fs.Float64Var(&f.query.MDE, "mde", d.MDE, "minimum detectable effect")
	fs.Float64Var(&f.query.Power, "power", d.Power, "statistical power")
	fs.StringVar(&f.scale, "scale", string(d.Scale), "how --mde is read: standardized (Cohen's d) or proportion")
	fs.Float64Var(&f.query.Baseline, "baseline", 0, "baseline conversion rate for --scale proportion")
}

func (f *powerFlags) apply(fs *pflag.FlagSet, q *stats.PowerQuery) {
	if fs.Changed("mde") {
		q.MDE = f.query.MDE
	}
	if fs.Changed("power") {
		q.Power = f.query.Power
	}
	if fs.Changed("scale") {
		q.Scale = stats.EffectScale(f.scale)
	}
	if fs.Changed("baseline") {
		q.Baseline = f.query.Baseline
	}
}

// queryFrom resolves the power query for cmd from config and flags.
func (f *powerFlags) queryFrom(cmd *cobra.Command, cfg *config.Config) *stats.PowerQuery {
	q := cfg.Power
	f.apply(cmd.Flags(), &q)
	return &q
}
