package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizDirectoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{QuizLoader: seededStore(t)}
	dir := NewQuizDirectory(client, loader, time.Minute)

	quiz, err := dir.QuizBySlug(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.ID != "q-1" || quiz.WebhookURL != "https://hooks.example.com" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("quiz:slug:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:slug:quiz-1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with at most 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := dir.QuizBySlug(context.Background(), "quiz-1")
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if cached.Title != "Quiz 1" {
		t.Fatalf("expected cached record, got %+v", cached)
	}

	if err := dir.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:slug:quiz-1") {
		t.Fatalf("expected redis key removed")
	}
}

type countingLoader struct {
	QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, slug)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	_, err := store.EnsureQuiz(context.Background(), domain.Quiz{
		ID:         "q-1",
		Slug:       "quiz-1",
		Title:      "Quiz 1",
		WebhookURL: "https://hooks.example.com",
	})
	if err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return store
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
