// Package library manages the year-partitioned directory of saved articles.
//
// Layout:
//
//	<root>/<year>/<YYMMDD Title>.html
//
// A Library is both the catalog's post source and the sync's content store.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/posts"
)

// DefaultURLPrefix is where article files are served from.
const DefaultURLPrefix = "/blogs"

// ErrExists is returned by Write when the article file is already present.
var ErrExists = errors.New("article already exists")

// Library is a content directory on disk.
type Library struct {
	root      string
	urlPrefix string
	logger    *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithURLPrefix sets the prefix of item locators.
func WithURLPrefix(prefix string) Option {
	return func(l *Library) {
		l.urlPrefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithLogger sets the logger used by Watch and Write.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// New returns a Library rooted at root. The directory is created lazily by
// Write.
func New(root string, opts ...Option) *Library {
	l := &Library{
		root:      filepath.Clean(root),
		urlPrefix: DefaultURLPrefix,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the library directory.
func (l *Library) Root() string { return l.root }

// URLPrefix returns the locator prefix.
func (l *Library) URLPrefix() string { return l.urlPrefix }

// FS returns the library as a read-only filesystem.
func (l *Library) FS() fs.FS { return os.DirFS(l.root) }

// Path returns the file path of an article.
func (l *Library) Path(year int, filename string) string {
	return filepath.Join(l.root, strconv.Itoa(year), filename)
}

// Locator returns the URL path an article is served under.
func (l *Library) Locator(year, filename string) string {
	return path.Join(l.urlPrefix, year, filename)
}

// Items lists every file under a year directory, ordered by year then name.
// A missing root is an empty library.
func (l *Library) Items(ctx context.Context) ([]posts.SourceItem, error) {
	years, err := l.yearDirs()
	if err != nil {
		return nil, err
	}

	var items []posts.SourceItem
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(filepath.Join(l.root, year))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", year, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			items = append(items, posts.SourceItem{
				Name:    e.Name(),
				Locator: l.Locator(year, e.Name()),
			})
		}
	}
	return items, nil
}

// Exists reports whether the article file is present.
func (l *Library) Exists(year int, filename string) (bool, error) {
	if err := checkFilename(filename); err != nil {
		return false, err
	}
	_, err := os.Stat(l.Path(year, filename))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
}

// Write saves an article, creating its year directory. It never overwrites
// and returns ErrExists instead.
func (l *Library) Write(year int, filename, html string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	dir := filepath.Join(l.root, strconv.Itoa(year))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", filename, ErrExists)
		}
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}

	// A partial file would look like a saved article to Exists.
	_, werr := writeContent(f, html)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		if rerr := os.Remove(path); rerr != nil {
			l.logger.Warn("failed to remove partial article", logging.Path(path), logging.Err(rerr))
		}
		return fmt.Errorf("failed to write %s: %w", filename, werr)
	}
	return nil
}

// writeContent is replaced in tests to simulate short writes.
var writeContent = func(w io.Writer, s string) (int, error) {
	return io.WriteString(w, s)
}

func (l *Library) yearDirs() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read library %s: %w", l.root, err)
	}

	var years []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			years = append(years, e.Name())
		}
	}
	return years, nil
}

func checkFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid article filename %q", name)
	}
	return nil
}
