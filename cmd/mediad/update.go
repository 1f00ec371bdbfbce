package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var description string
	var public bool
	var private bool
	var contentPath string

	cmd := &cobra.Command{
		Use:   "update <reference>",
		Short: "Update file metadata or replace its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if public && private {
				return fmt.Errorf("--public and --private are mutually exclusive")
			}

			return withClient(cfg, func(client *api.Client) error {
				reference := args[0]

				if contentPath != "" {
					f, err := os.Open(contentPath)
					if err != nil {
						return err
					}
					defer f.Close()
					resp, err := client.ReplaceContent(cmd.Context(), reference, filepath.Base(contentPath), f, "")
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(resp)
					}
					return writeFileDetail(resp)
				}

				req := api.FileUpdateRequest{}
				if cmd.Flags().Changed("description") {
					req.Description = &description
				}
				if public {
					value := true
					req.Public = &value
				}
				if private {
					value := false
					req.Public = &value
				}
				if req.Description == nil && req.Public == nil {
					return fmt.Errorf("nothing to update")
				}

				resp, err := client.UpdateFile(cmd.Context(), reference, req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeFileDetail(resp)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().BoolVar(&public, "public", false, "make the file public")
	cmd.Flags().BoolVar(&private, "private", false, "restrict access to the owner")
	cmd.Flags().StringVar(&contentPath, "content", "", "replace the stored content with this file")

	return cmd
}
