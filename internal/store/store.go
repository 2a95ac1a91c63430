// Package store provides access to the key-value store that holds catalog
// items as hashes, plus the auxiliary membership sets.
package store

import (
	"context"
	"time"
)

// Config holds configuration for the Redis-backed store
type Config struct {
	URL          string        `mapstructure:"url"`
	ScanCount    int64         `mapstructure:"scan_count"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// Store is a single connection to the key-value store.
// Hash reads of absent keys return an empty map, not an error.
type Store interface {
	// GetHash returns every field of the hash at key
	GetHash(ctx context.Context, key string) (map[string]string, error)

	// PutHash writes fields to the hash at key and adds key to each of
	// indexSets, atomically
	PutHash(ctx context.Context, key string, fields map[string]string, indexSets ...string) error

	// Delete removes key and reports whether it existed
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key exists
	Exists(ctx context.Context, key string) (bool, error)

	// SetString stores a plain string value at key
	SetString(ctx context.Context, key, value string) error

	// AddToSets adds member to every named set
	AddToSets(ctx context.Context, member string, sets ...string) error

	// RemoveFromSets removes member from every named set
	RemoveFromSets(ctx context.Context, member string, sets ...string) error

	// ScanPage returns one page of keys matching pattern and the next
	// cursor; a returned cursor of 0 means the iteration is complete
	ScanPage(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)

	// Close releases the connection
	Close() error
}

// Opener opens a fresh store connection. Callers close it when done.
type Opener interface {
	Open(ctx context.Context) (Store, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context) (Store, error)

// Open calls f(ctx)
func (f OpenerFunc) Open(ctx context.Context) (Store, error) {
	return f(ctx)
}
