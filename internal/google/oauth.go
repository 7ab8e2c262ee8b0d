package google

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoRefreshToken is returned when a token source is requested without a
// refresh token.
var ErrNoRefreshToken = errors.New("no Google refresh token configured")

// Config returns the OAuth2 configuration for the Gmail scopes. An empty
// redirectURL uses DefaultRedirectURL.
func Config(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       GmailScopes,
	}
}

// TokenSource returns a token source that refreshes access tokens from
// refreshToken on demand.
func TokenSource(ctx context.Context, conf *oauth2.Config, refreshToken string) (oauth2.TokenSource, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return conf.TokenSource(ctx, &oauth2.Token{
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		// Expired so the first call refreshes.
		Expiry: time.Unix(1, 0),
	}), nil
}

// HTTPClient returns an HTTP client authenticated by ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			ForceAttemptHTTP2:   false,
			TLSHandshakeTimeout: 10 * time.Second,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	client.Timeout = 60 * time.Second
	return client
}
