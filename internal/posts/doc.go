// Package posts builds the article catalog from saved newsletter files.
//
// A content file is named "YYMMDD Title.html". The package turns such names
// into Post records, assigns each post a category with a fixed keyword
// priority list, and offers the filters the UI and CLI use to narrow the
// catalog down:
//
//	items, _ := lib.Items(ctx)
//	catalog := posts.BuildCatalog(items)
//	shown := posts.Query{Category: "Database", Search: "index"}.Apply(catalog)
//
// Every function here is pure. A catalog is an immutable snapshot; callers
// rebuild it instead of mutating Post values.
package posts
