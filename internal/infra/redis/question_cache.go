package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/questions"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches whole category packs in Redis as JSON and falls back
// to the wrapped source on a miss. Cache keys are per category:
// questions:{category}:pack.
type QuestionCache struct {
	client *redis.Client
	source questions.Source
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source questions.Source, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Load(ctx context.Context, category string) ([]domain.Question, error) {
	key := c.packKey(category)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		if qs, ok := decodePack(raw); ok {
			return qs, nil
		}
		// Corrupt cache entry: drop it and refill below.
		_ = c.client.Del(ctx, key).Err()
	}

	result, err, _ := c.sf.Do(category, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			if qs, ok := decodePack(raw); ok {
				return qs, nil
			}
		}

		qs, err := c.source.Load(ctx, category)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(qs); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) packKey(category string) string {
	return "questions:" + category + ":pack"
}

func decodePack(raw []byte) ([]domain.Question, bool) {
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
