// Package server serves the article shelf over HTTP.
//
// # Routes
//
//	GET /                       HTML listing, filtered by ?category= and ?q=
//	GET /api/posts              JSON catalog after the same filters
//	GET /api/categories         ["All", ...categories]
//	GET /api/posts/{id}/image   {"image": url-or-null} for the first post with id
//	GET /api/image?path=        {"image": url-or-null} for the post at a catalog path
//	GET /blogs/*                raw article files from the library
//	GET /healthz, /readyz, /healthz/detailed
//
// The catalog is an immutable snapshot swapped atomically on reload, so
// requests never observe a partially built catalog. Prometheus metrics are
// served by MetricsServer on a separate listener.
package server
