package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxshelf/internal/logging"
)

// DefaultAuthTimeout bounds how long AuthFlow waits for the browser.
const DefaultAuthTimeout = 5 * time.Minute

// ErrAuthTimeout is returned when no callback arrives in time.
var ErrAuthTimeout = errors.New("authorization timed out")

const successPage = `<html>
  <body style="font-family: system-ui; padding: 40px; text-align: center;">
    <h1>Authorization successful</h1>
    <p>You can close this window and return to the terminal.</p>
  </body>
</html>`

// AuthFlow obtains a token through the browser-based authorization code
// flow with a loopback redirect.
type AuthFlow struct {
	Config  *oauth2.Config
	Timeout time.Duration
	// Listener, when set, is used instead of listening on the redirect
	// URL's host.
	Listener net.Listener
	// OnAuthURL is called with the URL the user has to open.
	OnAuthURL func(authURL string)
	Logger    *slog.Logger
}

type callbackResult struct {
	token *oauth2.Token
	err   error
}

// Run starts the callback server, waits for the redirect and exchanges the
// code. The returned token carries the refresh token.
func (f *AuthFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, errors.New("oauth config is required")
	}
	redirect, err := url.Parse(f.Config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %w", f.Config.RedirectURL, err)
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithOperation(logger, "google.auth")

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ln := f.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", redirect.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
		}
	}

	state, err := randomState()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errParam := q.Get("error"); errParam != "" {
			http.Error(w, "Authentication failed. Check the terminal for details.", http.StatusBadRequest)
			deliver(results, callbackResult{err: fmt.Errorf("authorization denied: %s", errParam)})
			return
		}
		if q.Get("state") != state {
			http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No authorization code received.", http.StatusBadRequest)
			deliver(results, callbackResult{err: errors.New("no authorization code received")})
			return
		}

		token, err := f.Config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, "Authentication failed. Check the terminal for details.", http.StatusInternalServerError)
			deliver(results, callbackResult{err: fmt.Errorf("failed to exchange auth code: %w", err)})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(successPage))
		deliver(results, callbackResult{token: token})
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(results, callbackResult{err: fmt.Errorf("callback server failed: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := f.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	logger.Info("waiting for authorization callback", slog.String("listen", ln.Addr().String()))
	if f.OnAuthURL != nil {
		f.OnAuthURL(authURL)
	}

	select {
	case res := <-results:
		return res.token, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrAuthTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}

func deliver(ch chan<- callbackResult, res callbackResult) {
	select {
	case ch <- res:
	default:
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
