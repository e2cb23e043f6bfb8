package imagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisSeqKey  = "imagecache:seq"
	redisHashKey = "imagecache:entries"
)

// RedisStore keeps the index in a Redis hash keyed by entry id, with a
// separate counter for id assignment. Suited to deployments where
// several workers share one cache.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Append(ctx context.Context, e Entry) (int64, error) {
	id, err := s.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate cache entry id: %w", err)
	}
	e.ID = id
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.HSet(ctx, redisHashKey, strconv.FormatInt(id, 10), data).Err(); err != nil {
		return 0, fmt.Errorf("store cache entry: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := s.client.HGetAll(ctx, redisHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load cache entries: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (s *RedisStore) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = strconv.FormatInt(id, 10)
	}
	if err := s.client.HDel(ctx, redisHashKey, fields...).Err(); err != nil {
		return fmt.Errorf("remove cache entries: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
