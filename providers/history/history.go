// Package history persists per-session chat turns. A turn is one user
// message and the assistant's reply, stored as a single atomic record so
// concurrent turns never interleave half-written exchanges.
package history

import (
	"context"
	"strings"
	"time"
)

// Turn is one completed exchange in a session.
type Turn struct {
	UserMessage      string    `json:"user"`
	AssistantMessage string    `json:"agent"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store reads and appends chat turns keyed by (user, session).
type Store interface {
	// History returns up to limit of the most recent turns, oldest first.
	// A limit of zero or less means no cap.
	History(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error)

	// SaveTurn appends one exchange atomically.
	SaveTurn(ctx context.Context, userID, sessionID, userMessage, assistantMessage string) error
}

// Render formats turns for inclusion in a model prompt.
func Render(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, "User: "+turn.UserMessage+"\nAgent: "+turn.AssistantMessage)
	}
	return strings.Join(lines, "\n")
}
