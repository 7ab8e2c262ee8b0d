package posts

import (
	"context"
	"fmt"
	"sort"
)

// BuildCatalog turns source items into posts sorted newest first.
// Items whose names do not parse are dropped. Two items with the same date
// yield two posts sharing an ID; both are kept.
func BuildCatalog(items []SourceItem) []Post {
	return BuildCatalogWith(items, defaultClassifier)
}

// BuildCatalogWith is BuildCatalog with a caller supplied classifier.
func BuildCatalogWith(items []SourceItem, classifier *Classifier) []Post {
	catalog := make([]Post, 0, len(items))
	for _, item := range items {
		if p, ok := newPost(item, classifier); ok {
			catalog = append(catalog, p)
		}
	}

	sort.SliceStable(catalog, func(i, j int) bool {
		return catalog[i].Date.After(catalog[j].Date)
	})
	return catalog
}

// LoadCatalog enumerates src and builds a catalog from its items.
func LoadCatalog(ctx context.Context, src Source) ([]Post, error) {
	items, err := src.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate content: %w", err)
	}
	return BuildCatalog(items), nil
}

// FindByPath returns the post stored at locator. Unlike ids, paths are
// unique within a catalog.
func FindByPath(catalog []Post, locator string) (Post, bool) {
	for _, p := range catalog {
		if p.Path == locator {
			return p, true
		}
	}
	return Post{}, false
}

// FindByID returns the first post with id.
func FindByID(catalog []Post, id string) (Post, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}
