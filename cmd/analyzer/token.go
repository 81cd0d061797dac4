package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"emailanalyser/internal/util"
	"emailanalyser/pkg/rbac"
)

var (
	flagSubject string
	flagRole    string
	flagTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a dashboard API token",
	Long: `Sign a JWT with jwt.secret for the dashboard API. Roles:
  viewer   read summaries and export CSV
  analyst  viewer plus upload emails and re-run the analysis
  admin    analyst plus outbox replay`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is not set")
		}
		if !rbac.IsKnownRole(flagRole) {
			return fmt.Errorf("unknown role %q", flagRole)
		}

		token, err := util.GenerateJWT(flagSubject, flagRole, cfg.JWT.Secret, flagTTL)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&flagSubject, "subject", "dashboard", "token subject")
	tokenCmd.Flags().StringVar(&flagRole, "role", rbac.RoleViewer, "role claim")
	tokenCmd.Flags().DurationVar(&flagTTL, "ttl", 24*time.Hour, "token lifetime")
}
