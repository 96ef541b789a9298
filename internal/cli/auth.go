package cli

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"jobtailor/internal/docs"
	"jobtailor/internal/errors"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Obtain a Google refresh token for Docs and Drive access",
	Long: `Print the Google consent URL, then exchange the authorization code for a
refresh token.

After approving access, Google redirects to the configured redirect URL.
Paste either the code or the whole redirect URL when prompted, or pass it
with --code.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

var authCode string

func init() {
	authCmd.Flags().StringVar(&authCode, "code", "", "Authorization code (or the full redirect URL)")
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	if err := cfg.ValidateForOAuth(); err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "cannot start authorization", err)
	}
	oauth := docs.NewOAuth(cfg.Google)
	out := cmd.OutOrStdout()

	code := authCode
	if code == "" {
		state := make([]byte, 16)
		if _, err := rand.Read(state); err != nil {
			return fmt.Errorf("failed to generate state: %w", err)
		}

		fmt.Fprintln(out, "Open this URL in your browser and approve access:")
		fmt.Fprintln(out)
		fmt.Fprintln(out, oauth.AuthURL(hex.EncodeToString(state)))
		fmt.Fprintln(out)
		fmt.Fprint(out, "Authorization code or redirect URL: ")

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read authorization code: %w", err)
		}
		code = line
	}

	token, err := oauth.Exchange(ctx, parseAuthCode(code))
	if err != nil {
		return err
	}

	logger.Info("OAuth authorization completed", "refresh_token_issued", token.RefreshToken != "")
	if token.RefreshToken == "" {
		return errors.NewNetworkError(errors.ErrCodeOAuthExchangeFailed,
			"Google did not return a refresh token; revoke the application's access and try again", nil)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Authorization Successful! Add the following to your environment or configuration:")
	fmt.Fprintf(out, "GOOGLE_REFRESH_TOKEN=%s\n", token.RefreshToken)
	return nil
}

// parseAuthCode accepts either a bare code or the redirect URL carrying it
func parseAuthCode(input string) string {
	input = strings.TrimSpace(input)
	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		if code := u.Query().Get("code"); code != "" {
			return code
		}
	}
	return input
}
