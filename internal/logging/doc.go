// Package logging provides structured logging utilities for inboxshelf.
//
// This package centralizes logging patterns so sync runs, the web server and
// the mail backends emit the same attribute names through log/slog.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "sync.run")
//	logger.Info("article saved",
//	    logging.MessageID(id),
//	    logging.Path(path))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("imap login",
//	    logging.UserHash(username))
//
// # Security Considerations
//
//   - Mailbox usernames are hashed to prevent PII leakage while allowing correlation
//   - Tokens and passwords are never logged directly
package logging
