// Package log provides redacting logging built on top of the standard slog
// package.
//
// This package extends slog to provide:
//   - Automatic redaction of credentials embedded in crawled URLs
//   - Masking of secret-looking attribute keys and values
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Redaction
//
// Crawls log every page URL they visit, and URLs found in the wild carry
// secrets surprisingly often. The RedactHandler rewrites log attributes
// before they reach the underlying handler:
//   - user-info passwords (https://user:pw@host/) become REDACTED
//   - sensitive query parameters (token, sig, key, password, ...) are masked
//   - URLs inside error messages are rewritten the same way
//   - attributes whose key looks secret (password, token, cookie, ...) are masked
//   - values that look like credentials (JWT, Bearer, Basic, AWS keys) are masked
//
// # Usage
//
//	logger := log.NewRedactingLogger(os.Stderr, true) // verbose=true
//	logger.Info("page fetched",
//	    "url", "https://example.com/a.png?sig=abc", // logged as ...?sig=REDACTED
//	)
//	slog.SetDefault(logger)
package log
