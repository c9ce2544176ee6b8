package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

// NewRootCmd builds the absim command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "absim",
		Short: "absim - simulate and analyze A/B tests",
		Long: `absim simulates or loads conversion data for two variants and reports
conversion rates, confidence intervals, a two-sample t-test, Cohen's d
and the sample size needed to detect a given effect.

Running without a subcommand starts the report server (same as 'absim serve').`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnvOrDefault("ABSIM_CONFIG", ""), "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serveCmd := newServeCmd()
	rootCmd.RunE = serveCmd.RunE // Default action is to start the server
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(
		newSimulateCmd(),
		newAnalyzeCmd(),
		newSampleSizeCmd(),
		newExportCmd(),
		serveCmd,
	)
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
