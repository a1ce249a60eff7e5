package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vdavid/replydesk/internal/config"
	"github.com/vdavid/replydesk/internal/crypto"
	"github.com/vdavid/replydesk/internal/db"
	"github.com/vdavid/replydesk/internal/mailbox"
)

// Auth command flags.
var (
	authCode string
)

// AuthCmd represents the auth command group.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize the Gmail mailbox",
	Long: `Authorize ReplyDesk to read and send mail for the Gmail account.

The token is encrypted with REPLYDESK_ENCRYPTION_KEY_BASE64 and stored in
Postgres. Refreshed tokens are written back automatically.

When the server is running, visiting /auth/login does the same in a browser.`,
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the consent URL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		oauthCfg, err := mailbox.LoadOAuthConfig(cfg.GoogleCredentialsPath, cfg.OAuthRedirectURL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), mailbox.AuthCodeURL(oauthCfg, uuid.NewString()))
		return err
	},
}

var authExchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Trade an authorization code for a stored token",
	Long: `Exchange the code Google returned after consent for a refresh token.

Examples:
  replydesk auth exchange --code 4/0AX4XfWh...`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		oauthCfg, err := mailbox.LoadOAuthConfig(cfg.GoogleCredentialsPath, cfg.OAuthRedirectURL)
		if err != nil {
			return err
		}

		return withTokenStore(cmd.Context(), cfg, func(tokens *db.TokenStore) error {
			if err := mailbox.ExchangeAndStore(cmd.Context(), oauthCfg, tokens, authCode); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Mailbox authorized.")
			return err
		})
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a mailbox token is stored",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		return withTokenStore(cmd.Context(), cfg, func(tokens *db.TokenStore) error {
			token, err := tokens.LoadToken(cmd.Context())
			if errors.Is(err, db.ErrTokenNotFound) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Not authorized.")
				return err
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Authorized (refresh token: %t, access token expires: %s)\n",
				token.RefreshToken != "", token.Expiry.Format("2006-01-02 15:04:05 MST"))
			return err
		})
	},
}

func init() {
	authExchangeCmd.Flags().StringVar(&authCode, "code", "", "authorization code from the consent redirect (required)")
	_ = authExchangeCmd.MarkFlagRequired("code")

	AuthCmd.AddCommand(authURLCmd)
	AuthCmd.AddCommand(authExchangeCmd)
	AuthCmd.AddCommand(authStatusCmd)
}

// withTokenStore opens the database just long enough to run fn.
func withTokenStore(ctx context.Context, cfg *config.Config, fn func(tokens *db.TokenStore) error) error {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseConnection(pool)

	return fn(db.NewTokenStore(pool, encryptor, tokenProvider))
}
