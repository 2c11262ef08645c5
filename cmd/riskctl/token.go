package main

import (
	"fmt"
	"time"

	"riskgate/internal/models"
	"riskgate/internal/utils"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a service token for the evaluation API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			perms, _ := cmd.Flags().GetStringSlice("permission")

			cfg := loadConfig()
			if cfg.AuthSecret == "" {
				return fmt.Errorf("AUTH_SECRET is not set")
			}
			token, err := utils.GenerateServiceToken(cfg.AuthSecret, subject, perms, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("subject", "riskctl", "token subject")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringSlice("permission", models.DefaultServicePermissions(), "granted permissions")
	return cmd
}
