package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "clockgate/internal/jwt_token"
	id "clockgate/pkg/domain"
)

var (
	tokenIdentity string
	tokenRole     string
	tokenTTL      time.Duration
)

// tokenCmd mints a bearer token with the configured signing key. Token
// issuance belongs to the upstream identity provider; this is for operators
// and local development.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for an identity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		identityID, err := id.ParseIdentityID(tokenIdentity)
		if err != nil {
			return fmt.Errorf("--identity: %w", err)
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		signed, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer).
			GenerateAccessToken(identityID, tokenRole, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenIdentity, "identity", "", "identity id (uuid)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", `role claim, "admin" for HR staff`)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("identity")
}
