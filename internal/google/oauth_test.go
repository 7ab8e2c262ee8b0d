package google

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, grants *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		grants.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "refresh_token":
			_, _ = w.Write([]byte(`{"access_token":"refreshed","token_type":"Bearer","expires_in":3600}`))
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt-123","token_type":"Bearer","expires_in":3600}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfig(t *testing.T) {
	conf := Config("id", "secret", "")
	assert.Equal(t, "id", conf.ClientID)
	assert.Equal(t, "secret", conf.ClientSecret)
	assert.Equal(t, DefaultRedirectURL, conf.RedirectURL)
	assert.Equal(t, GmailScopes, conf.Scopes)

	conf = Config("id", "secret", "http://127.0.0.1:9999/cb")
	assert.Equal(t, "http://127.0.0.1:9999/cb", conf.RedirectURL)
}

func TestTokenSource(t *testing.T) {
	_, err := TokenSource(context.Background(), Config("id", "secret", ""), "")
	assert.ErrorIs(t, err, ErrNoRefreshToken)

	var grants atomic.Int32
	srv := newTokenServer(t, &grants)
	conf := Config("id", "secret", "")
	conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	ts, err := TokenSource(context.Background(), conf, "rt-123")
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok.AccessToken)
	assert.Equal(t, int32(1), grants.Load())

	client := HTTPClient(context.Background(), ts)
	assert.NotNil(t, client)
	assert.Equal(t, 60*time.Second, client.Timeout)
}

func newFlow(t *testing.T, tokenURL string) (*AuthFlow, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	redirect := "http://" + ln.Addr().String() + "/oauth2callback"
	conf := Config("id", "secret", redirect)
	conf.Endpoint = oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL}

	return &AuthFlow{Config: conf, Listener: ln, Timeout: 5 * time.Second}, redirect
}

func callback(redirect string, params url.Values) {
	resp, err := http.Get(redirect + "?" + params.Encode())
	if err == nil {
		_ = resp.Body.Close()
	}
}

func TestAuthFlow_Success(t *testing.T) {
	var grants atomic.Int32
	srv := newTokenServer(t, &grants)
	flow, redirect := newFlow(t, srv.URL)

	flow.OnAuthURL = func(authURL string) {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		assert.Equal(t, "offline", u.Query().Get("access_type"))
		assert.Equal(t, "consent", u.Query().Get("prompt"))

		state := u.Query().Get("state")
		go func() {
			callback(redirect, url.Values{"state": {"forged"}, "code": {"good-code"}})
			callback(redirect, url.Values{"state": {state}, "code": {"good-code"}})
		}()
	}

	tok, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-123", tok.RefreshToken)
	assert.Equal(t, int32(1), grants.Load(), "forged state must not reach the token endpoint")
}

func TestAuthFlow_ExchangeFailure(t *testing.T) {
	var grants atomic.Int32
	srv := newTokenServer(t, &grants)
	flow, redirect := newFlow(t, srv.URL)

	flow.OnAuthURL = func(authURL string) {
		u, _ := url.Parse(authURL)
		go callback(redirect, url.Values{"state": {u.Query().Get("state")}, "code": {"bad-code"}})
	}

	_, err := flow.Run(context.Background())
	assert.ErrorContains(t, err, "failed to exchange auth code")
}

func TestAuthFlow_Denied(t *testing.T) {
	flow, redirect := newFlow(t, "http://127.0.0.1:1/token")
	flow.OnAuthURL = func(string) {
		go callback(redirect, url.Values{"error": {"access_denied"}})
	}

	_, err := flow.Run(context.Background())
	assert.ErrorContains(t, err, "access_denied")
}

func TestAuthFlow_Timeout(t *testing.T) {
	flow, _ := newFlow(t, "http://127.0.0.1:1/token")
	flow.Timeout = 50 * time.Millisecond

	_, err := flow.Run(context.Background())
	assert.ErrorIs(t, err, ErrAuthTimeout)
}

func TestAuthFlow_RequiresConfig(t *testing.T) {
	_, err := (&AuthFlow{}).Run(context.Background())
	assert.Error(t, err)
}
