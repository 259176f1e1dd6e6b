package templates

import (
	"fmt"
	"sort"
	"sync"

	"quiz-funnel-service/internal/domain"
)

// Registry is the process-wide, read-mostly set of quiz templates keyed by slug.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]domain.QuizTemplate
}

func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]domain.QuizTemplate)}
}

// NewBuiltinRegistry returns a registry holding the shipped funnels.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, tpl := range Builtin() {
		// Builtin templates are covered by tests; a failure here is a programming error.
		if err := r.Register(tpl); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates tpl and stores it, replacing any template with the same slug.
func (r *Registry) Register(tpl domain.QuizTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.templates[tpl.Slug] = tpl
	r.mu.Unlock()
	return nil
}

// Resolve returns the template for slug or domain.ErrTemplateNotFound.
func (r *Registry) Resolve(slug string) (domain.QuizTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[slug]
	if !ok {
		return domain.QuizTemplate{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, slug)
	}
	return tpl, nil
}

// All lists registered templates ordered by slug.
func (r *Registry) All() []domain.QuizTemplate {
	r.mu.RLock()
	out := make([]domain.QuizTemplate, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
