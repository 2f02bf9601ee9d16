/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wikistore/cosbackend/config"
	"github.com/wikistore/cosbackend/internal/signer"
)

var (
	signMethod  string
	signPath    string
	signHeaders []string
	signTime    int64
)

// signCmd represents the sign command
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Prints a COS Authorization value for a request",
	Long: `Prints the Authorization value the backend would send for a request,
using COS_SECRET_ID and COS_SECRET_KEY. Usage:

	cosbackend sign --method PUT --path /a.png --header Host=bucket.cos.ap-guangzhou.myqcloud.com
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		s, err := signer.New(cfg.COS.SecretID, cfg.COS.SecretKey)
		if err != nil {
			return err
		}
		if signTime > 0 {
			at := time.Unix(signTime, 0)
			s.Now = func() time.Time { return at }
		}

		headers, err := parseHeaderFlags(signHeaders)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.Sign(signMethod, signPath, headers))
		return nil
	},
}

func parseHeaderFlags(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want name=value", v)
		}
		headers[strings.TrimSpace(name)] = value
	}
	return headers, nil
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVar(&signMethod, "method", "PUT", "HTTP method")
	signCmd.Flags().StringVar(&signPath, "path", "/", "URL path of the object")
	signCmd.Flags().StringArrayVar(&signHeaders, "header", nil, "signed header as name=value (repeatable)")
	signCmd.Flags().Int64Var(&signTime, "time", 0, "unix time to sign at (default now)")
}
