// Package sequence issues year-scoped counters for human readable ids.
// Every backend increments and reads in one atomic operation, so concurrent
// callers never observe the same value.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
)

// Sequencer returns the next value of the named counter, starting at 1
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Counter is the subset of the entity store a SQLite sequencer needs
type Counter interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

type storeSequencer struct {
	store Counter
}

// NewStore backs the sequencer with the entity store's sequences table
func NewStore(store Counter) Sequencer {
	return &storeSequencer{store: store}
}

func (s *storeSequencer) Next(ctx context.Context, name string) (int64, error) {
	return s.store.NextSequence(ctx, name)
}

// RedisOptions configures the Redis backend
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisSequencer keeps counters as Redis integers advanced with INCR
type RedisSequencer struct {
	client *redis.Client
	prefix string
}

func NewRedis(opts RedisOptions) *RedisSequencer {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "talentflow:seq:"
	}
	return &RedisSequencer{client: client, prefix: prefix}
}

func (r *RedisSequencer) Next(ctx context.Context, name string) (int64, error) {
	n, err := r.client.Incr(ctx, r.prefix+name).Result()
	if err != nil {
		return 0, apperrors.Internal("increment sequence "+name, err)
	}
	return n, nil
}

func (r *RedisSequencer) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSequencer) Close() error {
	return r.client.Close()
}

// JobCounter names the counter for jobs created in the year of t
func JobCounter(t time.Time) string {
	return fmt.Sprintf("job-%d", t.Year())
}

// FormatJobCode renders JOB-<year>-NNNN
func FormatJobCode(t time.Time, seq int64) string {
	return fmt.Sprintf("JOB-%d-%04d", t.Year(), seq)
}
