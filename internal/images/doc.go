// Package images finds the lead image of a saved newsletter article.
//
// Newsletter HTML is full of chrome: avatars, share buttons, emoji, tracking
// pixels. The Extractor walks the parsed document's <img> elements in order
// and applies two passes over them, a strict one that only accepts
// images that look like article content (a known CDN path or a large
// embedded payload) and a looser fallback. Which hosts, markers and
// thresholds count is data (Rules), loaded from YAML so the heuristics can be
// tuned without a rebuild.
//
// The Resolver adds the fetch step in front of extraction. A failed fetch
// resolves to "no image" and is never reported as an error.
package images
