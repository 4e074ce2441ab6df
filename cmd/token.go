// Package cmd provides command-line interface commands for the DokQ gateway.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"dokq/auth"
	"dokq/config"
	"dokq/core"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Global flags for token commands
var (
	outputJSON bool
	noColor    bool
)

// NewTokenCmd creates the 'token' command tree for minting and
// inspecting locally issued JWTs. Intended for development and for
// wiring up service accounts in test environments.
func NewTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect locally signed access tokens",
		Long: `Mint and inspect JWTs signed with the locally configured secret.

Tokens minted here are only accepted when the gateway runs with the
local verification strategy. They are rejected by deployments that
verify against Firebase.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	tokenCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	tokenCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	tokenCmd.AddCommand(newMintCmd())
	tokenCmd.AddCommand(newInspectCmd())

	return tokenCmd
}

// newMintCmd creates the 'mint' subcommand
func newMintCmd() *cobra.Command {
	var (
		subject string
		role    string
		expiry  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				return err
			}

			issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, expiry)
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Cannot mint tokens: %v\n", err)
				return err
			}

			parsed := core.ParseRole(role)
			if string(parsed) != role {
				warningColor.Fprintf(os.Stderr, "Unknown role %q, using %q\n", role, parsed)
			}

			token, expiresAt, err := issuer.IssueToken(subject, parsed)
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Failed to mint token: %v\n", err)
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"token":     token,
					"subject":   subject,
					"role":      parsed,
					"expiresAt": expiresAt.Format(time.RFC3339),
				})
			}

			successColor.Println("Token minted")
			infoColor.Printf("  subject: %s\n", subject)
			infoColor.Printf("  role:    %s\n", parsed)
			infoColor.Printf("  expires: %s\n", expiresAt.Format(time.RFC3339))
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "dev-user", "Token subject (user id)")
	cmd.Flags().StringVar(&role, "role", string(core.DefaultRole), "Role claim to embed")
	cmd.Flags().DurationVar(&expiry, "expiry", core.DefaultJWTExpiry, "Token lifetime")

	return cmd
}

// newInspectCmd creates the 'inspect' subcommand
func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token against the configured secret and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				return err
			}

			verifier, err := auth.NewLocalVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.IsProduction())
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Cannot verify tokens: %v\n", err)
				return err
			}

			identity, err := verifier.Verify(cmd.Context(), args[0])
			if err != nil {
				errorColor.Fprintf(os.Stderr, "Token rejected: %v\n", err)
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(identity)
			}

			successColor.Println("Token valid")
			infoColor.Printf("  subject: %s\n", identity.Subject)
			infoColor.Printf("  role:    %s\n", identity.Role)
			return nil
		},
	}

	return cmd
}
