// Package store persists conversations and their turns in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tomaskol/wrenchbot/internal/chat"
	"github.com/tomaskol/wrenchbot/internal/completion"
)

// Store is the relational backing for turns and conversation ownership.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);

	CREATE TABLE IF NOT EXISTS turns (
		turn_id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		body TEXT NOT NULL,
		sent_at DATETIME NOT NULL,
		is_image INTEGER NOT NULL DEFAULT 0,
		sender TEXT NOT NULL CHECK(sender IN ('bot','user')),
		citations TEXT NOT NULL DEFAULT '[]',
		aux_context TEXT NOT NULL DEFAULT '',
		UNIQUE(conversation_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveTurn appends one turn to its conversation. The per-conversation
// sequence number is assigned inside a transaction so concurrent writers
// cannot collide.
func (s *Store) SaveTurn(ctx context.Context, t chat.Turn) error {
	citations := t.Citations
	if citations == nil {
		citations = []completion.Citation{}
	}
	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("marshal citations: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (turn_id, conversation_id, seq, body, sent_at, is_image, sender, citations, aux_context)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq)+1, 0) FROM turns WHERE conversation_id = ?), ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ConversationID, t.ConversationID, t.Body, t.SentAt.UTC(),
		t.IsImage, string(t.Sender), string(citationsJSON), t.AuxiliaryContext)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	return tx.Commit()
}

// RecentTurns returns the most recent limit turns of a conversation in
// chronological order. limit <= 0 means no cap.
func (s *Store) RecentTurns(ctx context.Context, conversationID string, limit int) ([]chat.Turn, error) {
	query := `
		SELECT turn_id, conversation_id, body, sent_at, is_image, sender, citations, aux_context
		FROM turns WHERE conversation_id = ? ORDER BY seq DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var t chat.Turn
		var sender, citationsJSON string
		var sentAt time.Time
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Body, &sentAt, &t.IsImage, &sender, &citationsJSON, &t.AuxiliaryContext); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.SentAt = sentAt
		t.Sender = chat.Sender(sender)
		if err := json.Unmarshal([]byte(citationsJSON), &t.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows were read newest-first to apply the cap; flip back to
	// chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CreateConversation records a new conversation and its owner.
func (s *Store) CreateConversation(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, user_id, created_at) VALUES (?, ?, ?)`,
		conversationID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// ConversationOwner returns the user id owning a conversation, or "" when
// the conversation is unknown.
func (s *Store) ConversationOwner(ctx context.Context, conversationID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query owner: %w", err)
	}
	return owner, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
