package docs

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"jobtailor/internal/config"
	"jobtailor/internal/errors"
)

// OAuth wraps the OAuth2 client configuration used for Docs and Drive access
type OAuth struct {
	config *oauth2.Config
}

// NewOAuth builds the OAuth2 flow from the Google settings
func NewOAuth(cfg config.GoogleConfig) *OAuth {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = config.DefaultGoogleScopes
	}

	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the consent page URL. Offline access with a forced consent
// prompt makes Google issue a refresh token on every authorization.
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "authorization code is required", nil)
	}

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeOAuthExchangeFailed, "failed to exchange authorization code", err)
	}
	return token, nil
}

// TokenSource returns a token source that refreshes access tokens from the
// stored refresh token
func (o *OAuth) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return o.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

// ClientOption authenticates Google API services with the refresh token
func (o *OAuth) ClientOption(ctx context.Context, refreshToken string) option.ClientOption {
	return option.WithTokenSource(o.TokenSource(ctx, refreshToken))
}
