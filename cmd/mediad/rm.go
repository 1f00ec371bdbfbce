package main

import (
	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newRmCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <reference> [<reference>...]",
		Short: "Delete files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				responses := make([]api.FileDeleteResponse, 0, len(args))
				for _, reference := range args {
					resp, err := client.DeleteFile(cmd.Context(), reference)
					if err != nil {
						return err
					}
					responses = append(responses, resp)
				}

				if *jsonOutput {
					if len(responses) == 1 {
						return writeJSON(responses[0])
					}
					return writeJSON(responses)
				}
				for _, resp := range responses {
					note := ""
					if !resp.BackendDeleted {
						note = " (backend object not removed)"
					}
					if err := writePlain("deleted %s%s\n", resp.Reference, note); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
