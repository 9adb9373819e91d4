// Package middleware holds the Fiber handlers that run around every page and
// API route: the session cookie and CurrentUser lookup, one-shot flashes,
// Redis-backed rate limits, request-scoped slog fields, otel request spans
// and Prometheus request metrics.
package middleware
