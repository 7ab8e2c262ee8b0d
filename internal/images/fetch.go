package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// maxArticleSize caps how much of an article body is read.
const maxArticleSize = 16 << 20

// Fetcher retrieves the raw HTML behind an article locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (status int, body string, err error)
}

// HTTPFetcher fetches locators relative to BaseURL.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with a bounded client timeout.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (int, string, error) {
	target, err := f.resolve(locator)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request for %s: %w", locator, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleSize))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to read %s: %w", locator, err)
	}
	return resp.StatusCode, string(body), nil
}

func (f *HTTPFetcher) resolve(locator string) (string, error) {
	ref, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	if ref.IsAbs() || f.BaseURL == "" {
		return ref.String(), nil
	}
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", f.BaseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// FSFetcher reads locators from a filesystem. Prefix is stripped from the
// locator before lookup, so "/blogs/2024/a.html" with Prefix "/blogs" reads
// "2024/a.html".
type FSFetcher struct {
	FS     fs.FS
	Prefix string
}

// Fetch implements Fetcher. Missing files report 404 without an error.
func (f *FSFetcher) Fetch(ctx context.Context, locator string) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	name := strings.TrimPrefix(locator, f.Prefix)
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if !fs.ValidPath(name) {
		return http.StatusBadRequest, "", nil
	}

	data, err := fs.ReadFile(f.FS, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "", nil
	case err != nil:
		return 0, "", fmt.Errorf("failed to read %s: %w", locator, err)
	}
	return http.StatusOK, string(data), nil
}
