package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps turns in process memory. It backs tests and local
// development runs where no database path is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func (store *MemoryStore) History(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	turns := store.turns[sessionKey(userID, sessionID)]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	result := make([]Turn, len(turns))
	copy(result, turns)
	return result, nil
}

func (store *MemoryStore) SaveTurn(ctx context.Context, userID, sessionID, userMessage, assistantMessage string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := sessionKey(userID, sessionID)
	store.turns[key] = append(store.turns[key], Turn{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		CreatedAt:        time.Now().UTC(),
	})
	return nil
}
