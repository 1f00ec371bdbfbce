package main

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var backend string
	var class string
	var mediaType string
	var owner string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				query := url.Values{}
				setIfNotEmpty(query, "backend", backend)
				setIfNotEmpty(query, "class", class)
				setIfNotEmpty(query, "type", mediaType)
				setIfNotEmpty(query, "owner", owner)

				responses, err := client.ListFiles(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(responses)
				}
				return writeFileList(responses)
			})
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "filter by backend (local, remote)")
	cmd.Flags().StringVar(&class, "class", "", "filter by media class (image, video, audio, document, other)")
	cmd.Flags().StringVar(&mediaType, "type", "", "filter by exact media type (e.g. audio/mpeg)")
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner id")

	return cmd
}

func setIfNotEmpty(values url.Values, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	values.Set(key, value)
}
