package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "billfold",
		Short:   "Personal finance tracker with bill reminders",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file (default $BILLFOLD_CONFIG)")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newScanCommand(&configPath),
		newWorkerCommand(&configPath),
		newMigrateCommand(&configPath),
		newBackupCommand(&configPath),
		newVAPIDKeysCommand(),
	)
	return rootCmd
}
