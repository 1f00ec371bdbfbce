package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var mediaType string
	var description string
	var private bool

	cmd := &cobra.Command{
		Use:   "upload <path> [<path>...]",
		Short: "Upload files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mediaType != "" && len(args) > 1 {
				return fmt.Errorf("--media-type applies to a single file")
			}
			return withClient(cfg, func(client *api.Client) error {
				responses := make([]api.FileResponse, 0, len(args))
				for _, path := range args {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					resp, err := client.UploadFile(cmd.Context(), filepath.Base(path), f, mediaType, description, !private)
					f.Close()
					if err != nil {
						return fmt.Errorf("upload %s: %w", path, err)
					}
					responses = append(responses, resp)
				}

				if *jsonOutput {
					if len(responses) == 1 {
						return writeJSON(responses[0])
					}
					return writeJSON(responses)
				}
				return writeFileList(responses)
			})
		},
	}

	cmd.Flags().StringVar(&mediaType, "media-type", "", "declared media type (default: derived from the file name)")
	cmd.Flags().StringVar(&description, "description", "", "file description")
	cmd.Flags().BoolVar(&private, "private", false, "restrict access to the owner")

	return cmd
}
