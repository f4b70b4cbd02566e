package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"recipe-gateway/middleware/ratelimit/domain"
)

// RedisStatsStore agrega decisões de admissão em hashes do Redis.
//
// Campos: "allowed", "denied" e "exhausted" (admitida consumindo a última vaga).
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "hour" (padrão), "minute" ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "quota:stats",
		ttl:    7 * 24 * time.Hour,
		bucket: "hour",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) bucketKey(at time.Time) string {
	switch s.bucket {
	case "minute":
		return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	case "hour":
		return fmt.Sprintf("%s:hour:%s", s.prefix, at.UTC().Format("2006010215"))
	default:
		return ""
	}
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	fields := []string{"denied"}
	if ev.Allowed {
		fields = []string{"allowed"}
		if ev.Remaining == 0 {
			fields = append(fields, "exhausted")
		}
	}

	pipe := s.rdb.Pipeline()
	incr := func(key string, expire bool) {
		for _, f := range fields {
			pipe.HIncrBy(ctx, key, f, 1)
		}
		if expire && s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	incr(s.prefix+":total", false)

	if bk := s.bucketKey(at); bk != "" {
		incr(bk, true)
	}

	if route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)); route != "" {
		for _, f := range fields {
			pipe.HIncrBy(ctx, s.prefix+":route", route+":"+f, 1)
		}
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			incr(s.prefix+":key:"+k, true)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
