package posts

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterByCategory keeps posts in category. CategoryAll returns posts as-is.
func FilterByCategory(posts []Post, category string) []Post {
	if category == CategoryAll {
		return posts
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// FilterBySearch keeps posts whose title or category contains term,
// ignoring case. A blank term returns posts as-is.
func FilterBySearch(posts []Post, term string) []Post {
	if strings.TrimSpace(term) == "" {
		return posts
	}
	needle := strings.ToLower(term)
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle) {
			out = append(out, p)
		}
	}
	return out
}

// UniqueCategories returns the distinct categories of posts in collation order.
func UniqueCategories(posts []Post) []string {
	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, p := range posts {
		c := p.Category
		if c == "" {
			c = CategoryGeneral
		}
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	// Collators keep internal buffers and are not safe to share.
	collate.New(language.English).SortStrings(categories)
	return categories
}

// Query is a category plus free-text filter as issued by the UI.
type Query struct {
	Category string
	Search   string
}

// Apply filters posts by category first, then by search term.
// An empty Category means CategoryAll.
func (q Query) Apply(posts []Post) []Post {
	category := q.Category
	if category == "" {
		category = CategoryAll
	}
	return FilterBySearch(FilterByCategory(posts, category), q.Search)
}

// Active reports whether the query narrows the catalog at all.
func (q Query) Active() bool {
	return (q.Category != "" && q.Category != CategoryAll) || strings.TrimSpace(q.Search) != ""
}
