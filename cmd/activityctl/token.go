package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/activityfeed/internal/auth"
	"github.com/heartmarshall/activityfeed/internal/domain"
)

func newTokenCommand(root *rootOptions) *cobra.Command {
	var id domain.Identity

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL).
				GenerateAccessToken(id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&id.ID, "user-id", "", "Subject user id")
	cmd.Flags().StringVar(&id.Email, "email", "", "Subject email")
	cmd.Flags().StringVar(&id.Name, "name", "", "Subject display name")
	return cmd
}
