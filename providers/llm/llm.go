// Package llm defines the text-generation provider abstraction consumed by
// the workflow nodes. A provider accepts an ordered (instruction, payload)
// message pair and returns generated text; implementations own transport,
// authentication and request shaping. See the gemini subpackage for the
// Google Gemini implementation.
package llm

import "context"

// Provider is the interface every text-generation backend must satisfy.
// Generate sends a system instruction and a user payload and returns the
// generated text. Implementations must honour ctx cancellation and
// deadlines; callers bound every invocation with a timeout.
type Provider interface {
	Generate(ctx context.Context, instruction, payload string) (string, error)
}

// GenerateFunc is an adapter that allows using an ordinary function as a
// Provider. Useful for tests and for wrapping providers with middleware.
type GenerateFunc func(ctx context.Context, instruction, payload string) (string, error)

// Generate calls the underlying function, satisfying the Provider interface.
func (generate GenerateFunc) Generate(ctx context.Context, instruction, payload string) (string, error) {
	return generate(ctx, instruction, payload)
}
