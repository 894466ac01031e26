package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chatrouter-backend/internal/database"
	"chatrouter-backend/internal/models"
	"chatrouter-backend/migrations"
)

type conversationStore interface {
	Append(ctx context.Context, sessionID string, entry models.ConversationEntry) error
	History(ctx context.Context, sessionID string) ([]models.ConversationEntry, error)
	Reset(ctx context.Context, sessionID string) error
}

// exerciseStore runs the behavior every backend must share.
func exerciseStore(t *testing.T, store conversationStore) {
	t.Helper()
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	store.Append(ctx, a, models.NewEntry(models.RoleUser, "hi"))
	store.Append(ctx, a, models.NewEntry(models.RoleModel, "Hello!"))
	store.Append(ctx, b, models.NewEntry(models.RoleUser, "other session"))

	history, err := store.History(ctx, a)
	if err != nil {
		t.Fatalf("History() returned unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("want 2 entries, got %d", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Text() != "hi" {
		t.Errorf("unexpected first entry: %+v", history[0])
	}
	if history[1].Role != models.RoleModel || history[1].Text() != "Hello!" {
		t.Errorf("unexpected second entry: %+v", history[1])
	}

	if err := store.Reset(ctx, a); err != nil {
		t.Fatalf("Reset() returned unexpected error: %v", err)
	}
	history, _ = store.History(ctx, a)
	if len(history) != 0 {
		t.Errorf("want empty history after reset, got %d entries", len(history))
	}

	other, _ := store.History(ctx, b)
	if len(other) != 1 {
		t.Errorf("reset leaked into another session: got %d entries", len(other))
	}
	store.Reset(ctx, b)
}

func TestConversationMemoryRepo(t *testing.T) {
	exerciseStore(t, NewConversationMemoryRepo(0))
}

func TestConversationMemoryRepo_MaxEntries(t *testing.T) {
	repo := NewConversationMemoryRepo(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		repo.Append(ctx, "s", models.NewEntry(models.RoleUser, fmt.Sprintf("m%d", i)))
	}

	history, _ := repo.History(ctx, "s")
	if len(history) != 3 {
		t.Fatalf("want 3 entries, got %d", len(history))
	}
	if history[0].Text() != "m2" || history[2].Text() != "m4" {
		t.Errorf("expected newest entries to be kept, got %q..%q", history[0].Text(), history[2].Text())
	}
}

func TestConversationMemoryRepo_HistoryIsCopy(t *testing.T) {
	repo := NewConversationMemoryRepo(0)
	ctx := context.Background()
	repo.Append(ctx, "s", models.NewEntry(models.RoleUser, "original"))

	history, _ := repo.History(ctx, "s")
	history[0] = models.NewEntry(models.RoleModel, "mutated")

	again, _ := repo.History(ctx, "s")
	if again[0].Text() != "original" {
		t.Fatalf("stored history was mutated through returned slice")
	}
}

func TestConversationMemoryRepo_ConcurrentAppend(t *testing.T) {
	repo := NewConversationMemoryRepo(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repo.Append(ctx, "shared", models.NewEntry(models.RoleUser, fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	history, _ := repo.History(ctx, "shared")
	if len(history) != 50 {
		t.Fatalf("want 50 entries, got %d", len(history))
	}
}

func TestConversationKey(t *testing.T) {
	if got := conversationKey("abc"); got != "conversation:abc" {
		t.Errorf("unexpected key %q", got)
	}
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestConversationRedisRepo(t *testing.T) {
	_, client := newMiniredisClient(t)
	exerciseStore(t, NewConversationRedisRepo(client, time.Minute, 0))
}

func TestConversationRedisRepo_MaxEntriesAndTTL(t *testing.T) {
	mr, client := newMiniredisClient(t)
	repo := NewConversationRedisRepo(client, time.Minute, 4)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if err := repo.Append(ctx, "s", models.NewEntry(models.RoleUser, fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err := repo.History(ctx, "s")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 || history[0].Text() != "m2" || history[3].Text() != "m5" {
		t.Fatalf("expected newest 4 entries m2..m5, got %+v", history)
	}

	if ttl := mr.TTL(conversationKey("s")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected TTL within a minute, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	history, err = repo.History(ctx, "s")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected history to expire, got %d entries", len(history))
	}
}

func TestConversationRedisRepo_StoresJSONParts(t *testing.T) {
	mr, client := newMiniredisClient(t)
	repo := NewConversationRedisRepo(client, 0, 0)
	ctx := context.Background()

	entry := models.ConversationEntry{
		Role:  models.RoleModel,
		Parts: []models.Part{{Text: "multi "}, {Text: "part"}},
	}
	if err := repo.Append(ctx, "s", entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	raw, err := mr.List(conversationKey("s"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(raw) != 1 || raw[0] != `{"role":"model","parts":[{"text":"multi "},{"text":"part"}]}` {
		t.Fatalf("unexpected stored value %v", raw)
	}
	if mr.TTL(conversationKey("s")) != 0 {
		t.Fatalf("expected no TTL when ttl is 0")
	}

	history, _ := repo.History(ctx, "s")
	if len(history) != 1 || history[0].Text() != "multi part" {
		t.Fatalf("unexpected history %+v", history)
	}

	if err := repo.Reset(ctx, "s"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists(conversationKey("s")) {
		t.Fatalf("expected key to be deleted on reset")
	}
}

func TestConversationRedisRepo_CorruptEntry(t *testing.T) {
	mr, client := newMiniredisClient(t)
	repo := NewConversationRedisRepo(client, 0, 0)

	mr.RPush(conversationKey("s"), "not json")
	if _, err := repo.History(context.Background(), "s"); err == nil {
		t.Fatal("expected decode error for corrupt entry")
	}
}

func TestConversationRedisRepo_ExternalServer(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("invalid REDIS_TEST_URL: %v", err)
	}
	client := redis.NewClient(opt)
	defer client.Close()

	exerciseStore(t, NewConversationRedisRepo(client, time.Minute, 0))
}

func TestConversationRepo_Postgres(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(context.Background(), pool, migrations.FS); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	exerciseStore(t, NewConversationRepo(pool, 0))
}
