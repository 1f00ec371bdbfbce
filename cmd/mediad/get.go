package main

import (
	"os"

	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <reference>",
		Short: "Download file content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				out := os.Stdout
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					defer f.Close()
					out = f
				}
				return client.DownloadContent(cmd.Context(), args[0], out)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write content to a file instead of stdout")

	return cmd
}
