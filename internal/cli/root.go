package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "strata",
	Short:         "Strata: hierarchical job state engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "strata.yaml", "config file path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(operatorsCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Errors are returned unprinted.
func Execute() error {
	return rootCmd.Execute()
}

// Personal.AI order the ending
