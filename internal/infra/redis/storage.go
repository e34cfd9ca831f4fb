package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a Redis-backed snapshot.KV.
// Notes:
//   - Reads map any Redis error to absence; the snapshot layer treats
//     absence as "start fresh", which is the correct degradation when the
//     server is unreachable.
//   - Writes are best-effort with an optional TTL; a failed write leaves
//     the in-process state authoritative.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewStorage(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl, prefix: prefix}
}

func (s *Storage) Get(key string) ([]byte, bool) {
	data, err := s.client.Get(context.Background(), s.key(key)).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (s *Storage) Set(key string, value []byte) error {
	return s.client.Set(context.Background(), s.key(key), value, s.ttl).Err()
}

func (s *Storage) Delete(key string) {
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

func (s *Storage) key(key string) string {
	return s.prefix + ":" + key
}
