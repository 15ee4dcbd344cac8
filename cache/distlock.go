package cache

import (
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
)

// VoteLockService serializes vote transitions per (question, user) pair
// across processes. The database transaction plus the unique index already
// guarantee the one-vote invariant; the lock removes the conflict-retry path
// when Redis is deployed.
type VoteLockService struct {
	rs *redsync.Redsync
}

// NewVoteLockService builds a lock service over the shared Redis client, or
// returns an error when Redis is unavailable.
func NewVoteLockService() (*VoteLockService, error) {
	client, err := GetClient()
	if err != nil {
		return nil, err
	}
	pool := goredis.NewPool(client)
	return &VoteLockService{rs: redsync.New(pool)}, nil
}

func voteLockName(questionID uint, userID string) string {
	return fmt.Sprintf("vote_lock:question:%d:user:%s", questionID, userID)
}

// WithVoteLock runs action while holding the pair's mutex.
func (s *VoteLockService) WithVoteLock(questionID uint, userID string, expiry time.Duration, action func() error) error {
	mutex := s.rs.NewMutex(voteLockName(questionID, userID),
		redsync.WithExpiry(expiry),
		redsync.WithTries(5),
		redsync.WithRetryDelay(50*time.Millisecond),
	)

	if err := mutex.Lock(); err != nil {
		return ErrLockNotAcquired
	}
	defer func() {
		_, _ = mutex.Unlock()
	}()

	return action()
}
