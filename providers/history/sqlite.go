package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	user_message TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_turns_session
	ON chat_turns (user_id, session_id, id);
`

// SQLiteStore persists turns in a local SQLite database. A turn is one
// row, so the user message and the reply are committed together.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent SaveTurn calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (store *SQLiteStore) Close() error {
	return store.db.Close()
}

func (store *SQLiteStore) History(ctx context.Context, userID, sessionID string, limit int) ([]Turn, error) {
	query := `
		SELECT user_message, assistant_message, created_at
		FROM chat_turns
		WHERE user_id = ? AND session_id = ?
		ORDER BY id DESC`
	args := []any{userID, sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var newestFirst []Turn
	for rows.Next() {
		var turn Turn
		var createdAt time.Time
		if err := rows.Scan(&turn.UserMessage, &turn.AssistantMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.CreatedAt = createdAt
		newestFirst = append(newestFirst, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	// The query returns newest first so LIMIT keeps the most recent
	// turns; callers expect oldest first.
	oldestFirst := make([]Turn, len(newestFirst))
	for index, turn := range newestFirst {
		oldestFirst[len(newestFirst)-1-index] = turn
	}
	return oldestFirst, nil
}

func (store *SQLiteStore) SaveTurn(ctx context.Context, userID, sessionID, userMessage, assistantMessage string) error {
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO chat_turns (user_id, session_id, user_message, assistant_message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, sessionID, userMessage, assistantMessage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving turn: %w", err)
	}
	return nil
}
