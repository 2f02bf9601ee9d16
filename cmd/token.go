/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wikistore/cosbackend/config"
	"github.com/wikistore/cosbackend/internal/handlers"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mints a bearer token for the HTTP API",
	Long: `Mints an HS256 bearer token signed with JWT_SECRET. Usage:

	cosbackend token --subject wiki --ttl 24h
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		token, err := handlers.IssueToken(tokenSubject, cfg.JWTSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "wiki", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", handlers.DefaultTokenTTL, "token lifetime")
}
