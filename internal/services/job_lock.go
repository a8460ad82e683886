package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrJobLocked means another run of the same job holds the lock.
var ErrJobLocked = errors.New("job is already running")

// Lock is a held job lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker grants exclusive runs of a named job. scope narrows the lock, for
// example to one date; pass "" for a job-wide lock.
type Locker interface {
	Obtain(ctx context.Context, name, scope string, ttl time.Duration) (Lock, error)
}

// RedisLocker keeps locks in Redis so they work across replicas.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, name, scope string, ttl time.Duration) (Lock, error) {
	key := "sdrdesk:lock:" + name
	if scope != "" {
		key += ":" + scope
	}

	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrJobLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}
	return lock, nil
}

// LockStore is the table-backed lock primitive.
type LockStore interface {
	TryAcquire(ctx context.Context, name, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, key, owner string) error
}

// DBLocker keeps locks in the job_locks table, for deployments without Redis.
type DBLocker struct {
	store LockStore
	owner string
}

func NewDBLocker(store LockStore) *DBLocker {
	host, _ := os.Hostname()
	return &DBLocker{
		store: store,
		owner: fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8]),
	}
}

func (l *DBLocker) Obtain(ctx context.Context, name, scope string, ttl time.Duration) (Lock, error) {
	if scope == "" {
		scope = "global"
	}
	ok, err := l.store.TryAcquire(ctx, name, scope, l.owner, ttl)
	if err != nil {
		return nil, fmt.Errorf("obtain db lock %s/%s: %w", name, scope, err)
	}
	if !ok {
		return nil, ErrJobLocked
	}
	return &dbLock{store: l.store, name: name, key: scope, owner: l.owner}, nil
}

type dbLock struct {
	store LockStore
	name  string
	key   string
	owner string
}

func (l *dbLock) Release(ctx context.Context) error {
	return l.store.Release(ctx, l.name, l.key, l.owner)
}
