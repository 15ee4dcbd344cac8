package cache

import "errors"

var (
	// ErrRedisNotAvailable means no Redis connection is configured or alive.
	ErrRedisNotAvailable = errors.New("redis not available")

	// ErrLockNotAcquired means the distributed lock could not be taken.
	ErrLockNotAcquired = errors.New("could not acquire distributed lock")

	// ErrCacheMiss means the key does not exist.
	ErrCacheMiss = errors.New("cache miss")
)
