package images

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor picks the first content image out of article HTML.
type Extractor struct {
	rules Rules
}

// NewExtractor returns an Extractor that applies rules.
func NewExtractor(rules Rules) *Extractor {
	return &Extractor{rules: rules}
}

var defaultExtractor = NewExtractor(DefaultRules())

// ExtractFirstImage returns the lead image of html using the built-in rules,
// or "" when none qualifies.
func ExtractFirstImage(html string) string {
	return defaultExtractor.Extract(html)
}

// Extract returns the lead image of html, or "" when none qualifies.
func (e *Extractor) Extract(html string) string {
	return e.ExtractFrom(strings.NewReader(html))
}

// ExtractFrom is Extract over a reader. Unparseable input yields "".
func (e *Extractor) ExtractFrom(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}
	return e.first(e.candidates(doc))
}

// candidates lists every image source in document order with proxy
// wrapping removed, minus the excluded ones.
func (e *Extractor) candidates(doc *goquery.Document) []string {
	var srcs []string
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = e.rules.unwrap(strings.TrimSpace(src))
		if src == "" || e.rules.excluded(src) {
			return
		}
		srcs = append(srcs, src)
	})
	return srcs
}

// first runs the strict pass, then the fallback pass.
func (e *Extractor) first(srcs []string) string {
	for _, src := range srcs {
		if e.rules.accepts(src, e.rules.MinContentPayloadSize) {
			return src
		}
	}
	for _, src := range srcs {
		if e.rules.accepts(src, e.rules.MinPayloadSize) {
			return src
		}
	}
	return ""
}
