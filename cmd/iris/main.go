// iris is the command line entry point for visual regression testing:
// capture pages across devices, diff against baselines and report.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagVerbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "iris",
		Short: "Visual regression testing for web pages",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(flagVerbose)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(diffCommand())
	rootCmd.AddCommand(serveCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}
