package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediad/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "mediad",
		Short: "Mediad stores and serves media files across local disk and a remote object store",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newUploadCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newGetCmd(cfg),
		newUpdateCmd(cfg, &jsonOutput),
		newRmCmd(cfg, &jsonOutput),
		newReprocessCmd(cfg, &jsonOutput),
		newStatsCmd(cfg, &jsonOutput),
		newUserCmd(cfg, &jsonOutput),
	)

	return cmd
}
