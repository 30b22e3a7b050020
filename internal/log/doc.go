// Package log builds the slog loggers used by domainrecon.
//
// Loggers returned by NewLogger wrap a text or JSON handler in a
// RedactHandler, which masks attribute values that carry credentials:
//   - attributes whose key names a credential (token, authorization, password, ...)
//   - string values that look like one (bearer and basic credentials, JWTs,
//     GitHub tokens, PEM private keys)
//
// The GitHub token used to query GeoLite2 releases is the main case; even
// in verbose mode it never reaches the log.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	logger.Debug("requesting", "url", url, "token", token) // token=***REDACTED***
package log
