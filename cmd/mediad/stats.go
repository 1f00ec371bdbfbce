package main

import (
	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newStatsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}

				if err := writePlain("files: %d\ntotal: %s\n", resp.TotalFiles, formatSize(resp.TotalBytes)); err != nil {
					return err
				}
				for _, backend := range []string{"local", "remote"} {
					if count, ok := resp.ByBackend[backend]; ok {
						if err := writePlain("%s: %d\n", backend, count); err != nil {
							return err
						}
					}
				}
				for _, class := range []string{"image", "video", "audio", "document", "other"} {
					if count, ok := resp.ByClass[class]; ok {
						if err := writePlain("%s: %d\n", class, count); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
}
