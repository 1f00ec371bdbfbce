package main

import (
	"github.com/spf13/cobra"

	"mediad/internal/api"
	"mediad/internal/config"
)

func newUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users (requires the admin token)",
	}

	cmd.AddCommand(
		newUserCreateCmd(cfg, jsonOutput),
		newUserListCmd(cfg, jsonOutput),
		newUserSetDisabledCmd(cfg, jsonOutput, "disable", true),
		newUserSetDisabledCmd(cfg, jsonOutput, "enable", false),
	)

	return cmd
}

func newUserCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var privileged bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision an API user and print their key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.AdminCreateUser(cmd.Context(), api.AdminUserCreateRequest{
					Name:       args[0],
					Privileged: privileged,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				// The key cannot be recovered later.
				return writePlain("user: %s (%s)\napi key: %s\n", resp.User.Name, resp.User.ID, resp.APIKey)
			})
		},
	}

	cmd.Flags().BoolVar(&privileged, "privileged", false, "grant access to private files and admin endpoints")

	return cmd
}

func newUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List API users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				users, err := client.AdminListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(users)
				}
				for _, user := range users {
					state := ""
					if user.Disabled {
						state = " (disabled)"
					} else if user.Privileged {
						state = " (privileged)"
					}
					if err := writePlain("%s %s%s\n", user.ID, user.Name, state); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newUserSetDisabledCmd(cfg *config.Config, jsonOutput *bool, use string, disabled bool) *cobra.Command {
	short := "Disable an API user"
	if !disabled {
		short = "Re-enable an API user"
	}

	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.AdminSetUserDisabled(cmd.Context(), args[0], disabled)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s: disabled=%t\n", args[0], disabled)
			})
		},
	}
}
