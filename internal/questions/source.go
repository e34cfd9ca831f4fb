// Package questions supplies question sets to the session machines. The
// core never fetches content itself; it asks a Source and falls back to the
// embedded packs when the source cannot deliver.
package questions

import (
	"context"

	"quizmaster-service/internal/domain"
)

// Source loads the question pool for a category (from a static map, a
// cache, Redis, or Postgres).
type Source interface {
	Load(ctx context.Context, category string) ([]domain.Question, error)
}

// StaticSource is a map-backed Source (useful for tests, demos, and the
// embedded fallback packs).
type StaticSource struct {
	packs map[string][]domain.Question
}

func NewStaticSource(packs map[string][]domain.Question) *StaticSource {
	return &StaticSource{packs: packs}
}

func (s *StaticSource) Load(_ context.Context, category string) ([]domain.Question, error) {
	pack, ok := s.packs[category]
	if !ok {
		return nil, domain.ErrPackNotFound
	}
	return append([]domain.Question(nil), pack...), nil
}

// filterValid drops questions that fail shape checks rather than rejecting
// the whole pack.
func filterValid(qs []domain.Question) []domain.Question {
	out := qs[:0:0]
	for _, q := range qs {
		if q.Valid() {
			out = append(out, q)
		}
	}
	return out
}
