package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz records by slug from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizDirectory caches quiz records in Redis and falls back to a loader on cache miss.
// Records are stored as JSON: SET quiz:slug:{slug} {json} EX ttl
type QuizDirectory struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizDirectory(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizDirectory {
	return &QuizDirectory{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *QuizDirectory) QuizBySlug(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := d.cached(ctx, slug); ok {
		return quiz, nil
	}

	result, err, _ := d.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := d.cached(ctx, slug); ok {
			return quiz, nil
		}
		quiz, err := d.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		if payload, err := json.Marshal(quiz); err == nil {
			// best-effort fill; a failed write only costs another load
			_ = d.client.Set(ctx, d.key(slug), payload, d.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (d *QuizDirectory) Invalidate(ctx context.Context, slug string) error {
	return d.client.Del(ctx, d.key(slug)).Err()
}

func (d *QuizDirectory) cached(ctx context.Context, slug string) (domain.Quiz, bool) {
	raw, err := d.client.Get(ctx, d.key(slug)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (d *QuizDirectory) key(slug string) string {
	return "quiz:slug:" + slug
}

func (d *QuizDirectory) ttlWithJitter() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	jitterMax := int64(d.ttl) / 10
	d.rndMu.Lock()
	defer d.rndMu.Unlock()
	return d.ttl + time.Duration(d.rnd.Int63n(jitterMax+1))
}
