// Package logging provides structured logging for the campus portal.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log passwords, bearer tokens, or the signing secret.
package logging
