// Package cmd implements the command-line interface for inboxshelf.
//
// This package provides the following commands:
//   - sync: Save newsletter emails from Gmail or IMAP into the library
//   - serve: Serve the library as a browsable web page and JSON API
//   - list: Print the catalog, filtered by category or search term
//   - auth: Obtain a Gmail refresh token or store an IMAP password
//   - version: Display version information
package cmd
