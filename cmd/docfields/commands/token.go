package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxxcyber/docfields/internal/middleware"
)

var (
	tokenClient string
	tokenScopes []string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for the API",
	Long:  "Mint an API client token signed with the key derived from JWT_SECRET.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := middleware.IssueToken(cfg, tokenClient, tokenScopes, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "", "client id (required)")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "upload, extract or history; repeatable (default all)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default JWT_EXPIRY_HOURS)")
	tokenCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(tokenCmd)
}
