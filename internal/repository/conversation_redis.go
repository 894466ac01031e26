package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatrouter-backend/internal/models"
)

// ConversationRedisRepo keeps each session's history in a Redis list.
type ConversationRedisRepo struct {
	redis      *redis.Client
	ttl        time.Duration
	maxEntries int
}

func NewConversationRedisRepo(client *redis.Client, ttl time.Duration, maxEntries int) *ConversationRedisRepo {
	return &ConversationRedisRepo{redis: client, ttl: ttl, maxEntries: maxEntries}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

func (r *ConversationRedisRepo) Append(ctx context.Context, sessionID string, entry models.ConversationEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	key := conversationKey(sessionID)
	_, err = r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if r.maxEntries > 0 {
			pipe.LTrim(ctx, key, int64(-r.maxEntries), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *ConversationRedisRepo) History(ctx context.Context, sessionID string) ([]models.ConversationEntry, error) {
	raw, err := r.redis.LRange(ctx, conversationKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	history := make([]models.ConversationEntry, 0, len(raw))
	for _, item := range raw {
		var e models.ConversationEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}
		history = append(history, e)
	}
	return history, nil
}

func (r *ConversationRedisRepo) Reset(ctx context.Context, sessionID string) error {
	return r.redis.Del(ctx, conversationKey(sessionID)).Err()
}
