package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"actionhub/internal/config"
	"actionhub/internal/utils"

	"github.com/spf13/cobra"
)

type tokenOptions struct {
	secret   string
	userID   string
	username string
	ttl      time.Duration
}

// NewTokenCommand mints a caller token for local testing against POST /action.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development caller token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.secret
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("no secret: pass --secret or set JWT_SECRET")
			}
			token, err := utils.GenerateJWT(secret, opts.userID, opts.username, opts.ttl)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.secret, "secret", "", "signing secret (default $JWT_SECRET)")
	cmd.Flags().StringVar(&opts.userID, "user", "", "user id claim")
	cmd.Flags().StringVar(&opts.username, "username", "", "username claim")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// NewConfigCommand prints the effective server configuration with secrets masked.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the configuration the server would load from the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if out != "" {
				if err := cfg.Save(out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", out)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), cfg.Redacted())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
