package infra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"recipe-gateway/errs"
	"recipe-gateway/middleware/ratelimit/domain"
)

// RedisStore é o caminho durável de domain.QuotaStore.
//
// Cada chave guarda o registro JSON com EXPIRE = ttl do Put. Não usa WATCH/MULTI:
// o contrato aceita a perda de incremento em corridas (ver application.Service).
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisStoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(k domain.Key) string {
	return s.prefix + strings.TrimSpace(string(k))
}

func (s *RedisStore) Get(ctx context.Context, k domain.Key) (domain.UsageWindow, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UsageWindow{}, false, nil
	}
	if err != nil {
		return domain.UsageWindow{}, false, errs.Wrap(errs.CodeStore, "redis get", err)
	}
	w, err := decodeWindow(b)
	if err != nil {
		return domain.UsageWindow{}, false, errs.Wrap(errs.CodeStore, "decode usage window", err)
	}
	return w, true, nil
}

func (s *RedisStore) Put(ctx context.Context, k domain.Key, w domain.UsageWindow, ttl time.Duration) error {
	b, err := encodeWindow(w)
	if err != nil {
		return errs.Wrap(errs.CodeStore, "encode usage window", err)
	}
	if err := s.rdb.Set(ctx, s.key(k), b, ttl).Err(); err != nil {
		return errs.Wrap(errs.CodeStore, "redis set", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, k domain.Key) error {
	if err := s.rdb.Del(ctx, s.key(k)).Err(); err != nil {
		return errs.Wrap(errs.CodeStore, "redis del", err)
	}
	return nil
}
