// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, X-Api-Key)
//   - API keys, including sk- prefixed provider keys
//   - Bearer tokens and JWTs, also when quoted inside error messages
//
// Token budgets (max_tokens and similar count keys) are left readable even
// though their names contain "token".
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("calling backend",
//	    "authorization", "Bearer sk-or-v1-...", // sanitized
//	    "max_tokens", 2000,                     // kept
//	)
//
//	slog.SetDefault(logger)
package log
