package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix     = "loan:lock:"
	DefaultLockTTL    = 10 * time.Second
	lockRetryInterval = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder cannot release a lock someone else acquired since.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serializes work on a loan across service instances with
// SET NX PX. The TTL bounds how long a crashed holder blocks the loan.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func lockKey(loanID uuid.UUID) string {
	return lockKeyPrefix + loanID.String()
}

func (l *RedisLocker) Lock(ctx context.Context, loanID uuid.UUID) (func(), error) {
	key := lockKey(loanID)
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, customError.WrapLockUnavailable(loanID.String(), err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, customError.WrapLockUnavailable(loanID.String(), ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release loan lock",
					zap.String("loan_id", loanID.String()), zap.Error(err))
			}
		})
	}, nil
}
