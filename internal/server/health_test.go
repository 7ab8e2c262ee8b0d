package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxshelf/internal/posts"
)

type staticSource struct {
	items []posts.SourceItem
	err   error
}

func (s staticSource) Items(context.Context) ([]posts.SourceItem, error) { return s.items, s.err }

func serveHealth(t *testing.T, h *HealthChecker, path string) (int, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterHealthEndpoints(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "")
	h.SetShuttingDown()

	code, body := serveHealth(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code, "liveness ignores readiness")
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_Readiness(t *testing.T) {
	catalog := NewCatalog(staticSource{items: []posts.SourceItem{{Name: "240814 Redis.html", Locator: "/blogs/2024/240814 Redis.html"}}}, nil, nil)
	h := NewHealthChecker(catalog, "v1.2.3")

	code, body := serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not loaded", body["checks"].(map[string]any)["catalog"])

	require.NoError(t, catalog.Reload(context.Background()))
	code, body = serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	h.SetReady(false)
	code, body = serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body["checks"].(map[string]any)["ready"])

	h.SetReady(true)
	h.SetShuttingDown()
	code, body = serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["checks"].(map[string]any)["shutdown"])
}

func TestHealth_Detailed(t *testing.T) {
	catalog := NewCatalog(staticSource{items: []posts.SourceItem{
		{Name: "240814 Redis.html", Locator: "/blogs/2024/240814 Redis.html"},
		{Name: "231105 SQL.html", Locator: "/blogs/2023/231105 SQL.html"},
	}}, nil, nil)
	require.NoError(t, catalog.Reload(context.Background()))
	h := NewHealthChecker(catalog, "v1.2.3")

	code, body := serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "v1.2.3", body["version"])
	assert.EqualValues(t, 2, body["posts"])
	assert.NotEmpty(t, body["catalog_built_at"])

	h.SetShuttingDown()
	code, body = serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["status"])
}

func TestCatalog_ReloadFailureKeepsSnapshot(t *testing.T) {
	src := &staticSource{items: []posts.SourceItem{{Name: "240814 Redis.html", Locator: "/a"}}}
	catalog := NewCatalog(src, nil, nil)

	assert.False(t, catalog.Loaded())
	assert.Empty(t, catalog.Snapshot().Posts)

	require.NoError(t, catalog.Reload(context.Background()))
	first := catalog.Snapshot()

	src.err = errors.New("disk gone")
	assert.Error(t, catalog.Reload(context.Background()))
	assert.Same(t, first, catalog.Snapshot())
	assert.Equal(t, []string{"Caching"}, catalog.Snapshot().Categories)
}
