package posts

import (
	"context"
	"time"
)

// Post is a single article in the catalog.
type Post struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Year     string    `json:"year"`
	Slug     string    `json:"slug"`
	Path     string    `json:"path"`
	Category string    `json:"category"`
}

// SourceItem is a content item as reported by a Source: its file name and a
// locator the content can later be fetched from.
type SourceItem struct {
	Name    string
	Locator string
}

// Source enumerates the content items a catalog is built from.
type Source interface {
	Items(ctx context.Context) ([]SourceItem, error)
}

// newPost builds a Post from a source item. It reports false when the name
// is not a post name or encodes an impossible date.
func newPost(item SourceItem, classifier *Classifier) (Post, bool) {
	parsed, ok := ParseFilename(item.Name)
	if !ok {
		return Post{}, false
	}

	category := classifier.Classify(parsed.Title)
	if category == "" {
		category = CategoryGeneral
	}

	return Post{
		ID:       parsed.ID,
		Title:    parsed.Title,
		Date:     parsed.Date,
		Year:     parsed.Date.Format("2006"),
		Slug:     Slugify(parsed.Title),
		Path:     item.Locator,
		Category: category,
	}, true
}
