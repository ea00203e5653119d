package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
)

// Credentials selects how the Google clients authenticate. A service
// account takes precedence over an OAuth client + refresh token.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

func (c Credentials) hasServiceAccount() bool {
	return c.ServiceAccountJSON != "" || c.ServiceAccountFile != ""
}

func (c Credentials) hasOAuth() bool {
	return (c.OAuthClientJSON != "" || c.OAuthClientFile != "") &&
		(c.OAuthTokenJSON != "" || c.OAuthTokenFile != "")
}

var ErrMissingCredentials = errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or an OAuth client and token)")

// ClientOptions resolves the credentials into API client options for the
// given scopes.
func ClientOptions(ctx context.Context, creds Credentials, scopes ...string) ([]goption.ClientOption, error) {
	switch {
	case creds.hasServiceAccount():
		b, err := readInlineOrFile(creds.ServiceAccountJSON, creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials", "credentials_size", len(b), "scopes", scopes)
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(scopes...),
		}, nil
	case creds.hasOAuth():
		ts, err := oauthTokenSource(ctx, creds, scopes...)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth refresh token credentials", "scopes", scopes)
		return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
	default:
		return nil, ErrMissingCredentials
	}
}

func oauthTokenSource(ctx context.Context, creds Credentials, scopes ...string) (oauth2.TokenSource, error) {
	clientJSON, err := readInlineOrFile(creds.OAuthClientJSON, creds.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	cfg, err := goauth.ConfigFromJSON(clientJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tokenJSON, err := readInlineOrFile(creds.OAuthTokenJSON, creds.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return cfg.TokenSource(ctx, &tok), nil
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, errors.New("no inline value or file path")
	}
	return os.ReadFile(path)
}
