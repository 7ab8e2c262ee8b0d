package library

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxshelf/internal/posts"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestLibrary_Items(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024/240725 Tidying Code.html", "<p>a</p>")
	writeFile(t, root, "2024/notes.txt", "x")
	writeFile(t, root, "2023/231012 A Crash Course in Redis.html", "<p>b</p>")
	writeFile(t, root, "README.md", "top-level files are ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	lib := New(root)
	items, err := lib.Items(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []posts.SourceItem{
		{Name: "231012 A Crash Course in Redis.html", Locator: "/blogs/2023/231012 A Crash Course in Redis.html"},
		{Name: "240725 Tidying Code.html", Locator: "/blogs/2024/240725 Tidying Code.html"},
		{Name: "notes.txt", Locator: "/blogs/2024/notes.txt"},
	}, items)

	catalog, err := posts.LoadCatalog(context.Background(), lib)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "20240725", catalog[0].ID)
	assert.Equal(t, posts.CategoryCaching, catalog[1].Category)
}

func TestLibrary_ItemsMissingRoot(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "absent"))
	items, err := lib.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLibrary_URLPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024/240725 Tidying Code.html", "<p>a</p>")

	lib := New(root, WithURLPrefix("articles/"))
	assert.Equal(t, "/articles", lib.URLPrefix())

	items, err := lib.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/articles/2024/240725 Tidying Code.html", items[0].Locator)
}

func TestLibrary_WriteAndExists(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "blogs"))

	ok, err := lib.Exists(2024, "240725 Tidying Code.html")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lib.Write(2024, "240725 Tidying Code.html", "<p>hello</p>"))

	ok, err = lib.Exists(2024, "240725 Tidying Code.html")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(lib.Path(2024, "240725 Tidying Code.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(data))

	err = lib.Write(2024, "240725 Tidying Code.html", "<p>again</p>")
	assert.ErrorIs(t, err, ErrExists)

	data, err = os.ReadFile(lib.Path(2024, "240725 Tidying Code.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(data), "existing article must not be overwritten")
}

func TestLibrary_WriteFailureLeavesNoFile(t *testing.T) {
	lib := New(t.TempDir())

	orig := writeContent
	t.Cleanup(func() { writeContent = orig })
	writeContent = func(w io.Writer, s string) (int, error) {
		n, _ := io.WriteString(w, s[:len(s)/2])
		return n, errors.New("no space left on device")
	}

	err := lib.Write(2024, "240725 Tidying Code.html", "<p>a long enough article body</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no space left on device")

	ok, err := lib.Exists(2024, "240725 Tidying Code.html")
	require.NoError(t, err)
	assert.False(t, ok, "a truncated article must not count as saved")

	writeContent = orig
	require.NoError(t, lib.Write(2024, "240725 Tidying Code.html", "<p>complete</p>"))
	data, err := os.ReadFile(lib.Path(2024, "240725 Tidying Code.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>complete</p>", string(data))
}

func TestLibrary_RejectsPathsInFilename(t *testing.T) {
	lib := New(t.TempDir())

	for _, name := range []string{"", "..", "../escape.html", `a\b.html`, "2024/x.html"} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, lib.Write(2024, name, "x"))
			_, err := lib.Exists(2024, name)
			assert.Error(t, err)
		})
	}
}

func TestLibrary_Stats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024/a.html", "")
	writeFile(t, root, "2024/b.html", "")
	writeFile(t, root, "2024/c.htm", "")
	writeFile(t, root, "2023/d.html", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2025"), 0o755))

	stats, err := New(root).Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"2023": 1, "2024": 2, "2025": 0}, stats.ByYear)
	assert.Equal(t, []string{"2023", "2024", "2025"}, stats.Years())
}

func TestLibrary_StatsEmpty(t *testing.T) {
	stats, err := New(filepath.Join(t.TempDir(), "none")).Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.Years())
}

func TestLibrary_Watch(t *testing.T) {
	root := t.TempDir()
	lib := New(root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- lib.Watch(ctx, 20*time.Millisecond, func() { changed <- struct{}{} })
	}()

	// The watcher registers asynchronously; retry the write until a change is seen.
	require.Eventually(t, func() bool {
		_ = lib.Write(2024, time.Now().Format("150405.000000")+".html", "<p>x</p>")
		select {
		case <-changed:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
