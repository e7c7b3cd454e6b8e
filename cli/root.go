// Package cli wires configuration, the engine and the catalog into cobra commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"productmatcher/config"
	"productmatcher/logging"
)

var (
	cfgPath   string
	debugFlag bool
	logPath   string

	// cfg is loaded once per invocation by the root pre-run hook
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "productmatcher",
	Short:        "Match product photos against a catalog by visual similarity",
	SilenceUsage: true,
	Long: `productmatcher serves an HTTP endpoint that turns a product photo into
dominant colors and an image embedding, and returns similar catalog items.
It can also index a folder of product photos into a local sqlite catalog.`,
	PersistentPreRunE: loadSettings,
	PersistentPostRun: func(*cobra.Command, []string) {
		logging.CloseLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default "+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logPath, "logfile", "", "also write logs to this file")
}

// Execute runs the root command; ctx is cancelled on SIGINT/SIGTERM
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	if cmd.Flags().Changed("debug") {
		c.Logging.Debug = debugFlag
	}
	if logPath != "" {
		c.Logging.File = logPath
	}

	logging.SetDebug(c.Logging.Debug)
	if c.Logging.File != "" {
		if err := logging.SetupLogger(c.Logging.File); err != nil {
			logging.LogWarning("Failed to setup log file: %v", err)
		} else {
			logging.DebugLog("Logging to: %s", c.Logging.File)
		}
	}

	cfg = c
	return nil
}
