package main

import (
	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newReprocessCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <reference>",
		Short: "Re-queue audio metadata extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Reprocess(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s: %s\n", resp.Reference, resp.ProcessingStatus)
			})
		},
	}
}
