package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-funnel-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz records by slug from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizDirectory caches quiz records by slug with TTL to avoid repeated store hits.
type QuizDirectory struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizDirectory(loader QuizLoader, ttl time.Duration) *QuizDirectory {
	return NewQuizDirectoryWithClock(loader, ttl, time.Now)
}

// NewQuizDirectoryWithClock is test-only for deterministic expiry.
func NewQuizDirectoryWithClock(loader QuizLoader, ttl time.Duration, clock func() time.Time) *QuizDirectory {
	return &QuizDirectory{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (d *QuizDirectory) QuizBySlug(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := d.cached(slug); ok {
		return quiz, nil
	}

	result, err, _ := d.sf.Do(slug, func() (interface{}, error) {
		if quiz, ok := d.cached(slug); ok {
			return quiz, nil
		}
		quiz, err := d.loader.LoadQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		d.mu.Lock()
		d.cache[slug] = cachedQuiz{
			quiz:      quiz,
			expiresAt: d.clock().Add(d.ttlWithJitter()),
		}
		d.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached record so the next lookup reloads it.
func (d *QuizDirectory) Invalidate(_ context.Context, slug string) error {
	d.mu.Lock()
	delete(d.cache, slug)
	d.mu.Unlock()
	return nil
}

func (d *QuizDirectory) cached(slug string) (domain.Quiz, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.cache[slug]
	if !ok || !entry.expiresAt.After(d.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (d *QuizDirectory) ttlWithJitter() time.Duration {
	if d.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(d.ttl) / 10
	d.rndMu.Lock()
	defer d.rndMu.Unlock()
	return d.ttl + time.Duration(d.rnd.Int63n(jitterMax+1))
}
