package cli

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagEnvFile   string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd creates the root cobra command for the typesched CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "typesched",
		Short:        "Per-type exclusive task scheduler",
		Long:         "typesched runs tasks concurrently while allowing at most one task of each type in flight.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yml", "Path to the YAML config file")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Optional dotenv file loaded before the config")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json); overrides config")

	root.AddCommand(newLoadCmd())

	return root
}
