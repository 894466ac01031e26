package repository

import (
	"context"
	"sync"

	"chatrouter-backend/internal/models"
)

// ConversationMemoryRepo keeps history in process memory. It is lost on restart.
type ConversationMemoryRepo struct {
	mu         sync.Mutex
	sessions   map[string][]models.ConversationEntry
	maxEntries int
}

func NewConversationMemoryRepo(maxEntries int) *ConversationMemoryRepo {
	return &ConversationMemoryRepo{
		sessions:   make(map[string][]models.ConversationEntry),
		maxEntries: maxEntries,
	}
}

func (r *ConversationMemoryRepo) Append(ctx context.Context, sessionID string, entry models.ConversationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append(r.sessions[sessionID], entry)
	if r.maxEntries > 0 && len(history) > r.maxEntries {
		history = append([]models.ConversationEntry(nil), history[len(history)-r.maxEntries:]...)
	}
	r.sessions[sessionID] = history
	return nil
}

// History returns a copy so callers cannot mutate stored entries.
func (r *ConversationMemoryRepo) History(ctx context.Context, sessionID string) ([]models.ConversationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.sessions[sessionID]
	out := make([]models.ConversationEntry, len(history))
	copy(out, history)
	return out, nil
}

func (r *ConversationMemoryRepo) Reset(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
