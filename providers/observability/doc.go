// Package observability defines the Provider abstraction for tracing,
// metrics and structured logging, plus context helpers for propagating the
// active observer and span across component boundaries.
//
// The zero value of the system is "observability disabled": a nil Provider
// costs nothing and emits nothing. See the slogobs subpackage for an
// implementation backed by log/slog.
package observability
