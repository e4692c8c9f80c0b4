// Package slogobs implements observability.Provider using the standard
// library's log/slog. Suitable for lightweight observability without
// external dependencies.
package slogobs
