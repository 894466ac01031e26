package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatrouter-backend/internal/models"
)

// ConversationRepo keeps session history in Postgres.
type ConversationRepo struct {
	pool       *pgxpool.Pool
	maxEntries int
}

func NewConversationRepo(pool *pgxpool.Pool, maxEntries int) *ConversationRepo {
	return &ConversationRepo{pool: pool, maxEntries: maxEntries}
}

func (r *ConversationRepo) Append(ctx context.Context, sessionID string, entry models.ConversationEntry) error {
	parts, err := json.Marshal(entry.Parts)
	if err != nil {
		return fmt.Errorf("failed to encode parts: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO conversation_entries (session_id, role, parts) VALUES ($1, $2, $3)",
		sessionID, entry.Role, parts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if r.maxEntries > 0 {
		_, err = tx.Exec(ctx, `
			DELETE FROM conversation_entries
			WHERE session_id = $1
			  AND id NOT IN (
				SELECT id FROM conversation_entries
				WHERE session_id = $1
				ORDER BY id DESC
				LIMIT $2
			  )
		`, sessionID, r.maxEntries)
		if err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepo) History(ctx context.Context, sessionID string) ([]models.ConversationEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role, parts FROM conversation_entries
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.ConversationEntry
	for rows.Next() {
		var e models.ConversationEntry
		var parts []byte
		if err := rows.Scan(&e.Role, &parts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(parts, &e.Parts); err != nil {
			return nil, fmt.Errorf("failed to decode parts: %w", err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

func (r *ConversationRepo) Reset(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM conversation_entries WHERE session_id = $1", sessionID)
	return err
}
