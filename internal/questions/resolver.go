package questions

import (
	"context"
	"time"

	"quizmaster-service/internal/domain"
)

// Resolver answers the one question the session machines care about: give
// me a usable pool for this category, within a bounded time. Any failure,
// whether timeout, source error, or a malformed pack, degrades to the
// embedded default pack. The second return value reports whether the
// fallback was used so views can show a soft notice; it is never an error.
type Resolver struct {
	source  Source
	timeout time.Duration
}

func NewResolver(source Source, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{source: source, timeout: timeout}
}

func (r *Resolver) Resolve(ctx context.Context, category string) ([]domain.Question, bool) {
	if r.source != nil {
		loadCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		qs, err := r.source.Load(loadCtx, category)
		if err == nil {
			if usable := filterValid(qs); len(usable) > 0 {
				return usable, false
			}
		}
	}
	return DefaultPack(category), true
}
