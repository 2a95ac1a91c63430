package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/go-redis/redis/v8"
)

// RedisOpener opens a new Redis connection per call
type RedisOpener struct {
	options *redis.Options
}

// NewRedisOpener validates the store configuration and returns an opener.
// A missing or malformed URL is reported as StorageUnavailable.
func NewRedisOpener(cfg Config) (*RedisOpener, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, apperrors.StorageUnavailable("store.NewRedisOpener",
			fmt.Errorf("store url is not configured"))
	}

	options, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, apperrors.StorageUnavailable("store.NewRedisOpener",
			fmt.Errorf("invalid store url: %w", err))
	}

	if cfg.DialTimeout > 0 {
		options.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		options.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		options.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		options.PoolSize = cfg.PoolSize
	}
	options.MaxRetries = -1

	return &RedisOpener{options: options}, nil
}

// Open dials Redis and verifies the connection with PING
func (o *RedisOpener) Open(ctx context.Context) (Store, error) {
	opts := *o.options
	client := redis.NewClient(&opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.StorageUnavailable("store.Open", err)
	}

	return &RedisStore{client: client}, nil
}

// RedisStore implements Store on a go-redis client
type RedisStore struct {
	client *redis.Client
}

// GetHash returns every field of the hash at key
func (s *RedisStore) GetHash(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// PutHash writes the hash and its set memberships in one MULTI/EXEC
func (s *RedisStore) PutHash(ctx context.Context, key string, fields map[string]string, indexSets ...string) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		for _, set := range indexSets {
			pipe.SAdd(ctx, set, key)
		}
		return nil
	})
	return err
}

// Delete removes key and reports whether it existed
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether key exists
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetString stores a plain string value at key without expiry
func (s *RedisStore) SetString(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// AddToSets adds member to every named set
func (s *RedisStore) AddToSets(ctx context.Context, member string, sets ...string) error {
	if len(sets) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, set := range sets {
			pipe.SAdd(ctx, set, member)
		}
		return nil
	})
	return err
}

// RemoveFromSets removes member from every named set, stopping at the first failure
func (s *RedisStore) RemoveFromSets(ctx context.Context, member string, sets ...string) error {
	for _, set := range sets {
		if err := s.client.SRem(ctx, set, member).Err(); err != nil {
			return fmt.Errorf("remove %s from %s: %w", member, set, err)
		}
	}
	return nil
}

// ScanPage runs a single SCAN step
func (s *RedisStore) ScanPage(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	return s.client.Scan(ctx, cursor, pattern, count).Result()
}

// Close releases the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
