package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/infrastructure/service/jwt"
)

// newTokenCmd issues access tokens for local development. Tokens are normally
// issued by the authentication service.
func newTokenCmd() *cobra.Command {
	var user, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			rt, err := loadRuntime(os.Stderr)
			if err != nil {
				return err
			}
			if rt.cfg.IsProduction() {
				return errors.New("token issuing is disabled in production")
			}

			tokenService, err := jwt.NewJWTService(rt.cfg)
			if err != nil {
				return err
			}
			token, err := tokenService.GenerateAccessToken(outbound.TokenClaims{UserID: user, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User id carried by the token")
	cmd.Flags().StringVar(&role, "role", "", "Optional role claim")
	return cmd
}
