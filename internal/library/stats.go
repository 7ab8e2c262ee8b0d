package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stats summarizes the saved articles.
type Stats struct {
	Total  int            `json:"total"`
	ByYear map[string]int `json:"by_year"`
}

// Years returns the years with articles in ascending order.
func (s Stats) Years() []string {
	years := make([]string, 0, len(s.ByYear))
	for y := range s.ByYear {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// Stats counts the .html files in each year directory.
func (l *Library) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByYear: map[string]int{}}

	years, err := l.yearDirs()
	if err != nil {
		return stats, err
	}
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		entries, err := os.ReadDir(filepath.Join(l.root, year))
		if err != nil {
			return stats, fmt.Errorf("failed to read %s: %w", year, err)
		}
		n := 0
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
				n++
			}
		}
		stats.ByYear[year] = n
		stats.Total += n
	}
	return stats, nil
}
