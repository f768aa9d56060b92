// Package cache keeps derived, rebuildable data out of the database hot
// path: amortization schedules and cross-instance loan locks.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segyhp/loan-ledger/internal/domain"
	"go.uber.org/zap"
)

const (
	scheduleKeyPrefix  = "loan:schedule:"
	DefaultScheduleTTL = 24 * time.Hour
)

// ScheduleCache stores the amortization schedule of a loan. A schedule only
// depends on frozen loan terms, so entries stay valid until the loan is
// removed.
type ScheduleCache interface {
	GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, bool, error)
	SetSchedule(ctx context.Context, schedule *domain.ScheduleResponse) error
	Invalidate(ctx context.Context, loanID uuid.UUID) error
}

func scheduleKey(loanID uuid.UUID) string {
	return scheduleKeyPrefix + loanID.String()
}

type RedisScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisScheduleCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisScheduleCache {
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisScheduleCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisScheduleCache) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, bool, error) {
	val, err := c.client.Get(ctx, scheduleKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var schedule domain.ScheduleResponse
	if err := json.Unmarshal(val, &schedule); err != nil {
		// a corrupt entry is a miss; the caller rebuilds and overwrites it
		c.logger.Warn("discarding unreadable schedule cache entry",
			zap.String("loan_id", loanID.String()), zap.Error(err))
		return nil, false, nil
	}

	return &schedule, true, nil
}

func (c *RedisScheduleCache) SetSchedule(ctx context.Context, schedule *domain.ScheduleResponse) error {
	val, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	return c.client.Set(ctx, scheduleKey(schedule.LoanID), val, c.ttl).Err()
}

func (c *RedisScheduleCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	return c.client.Del(ctx, scheduleKey(loanID)).Err()
}

// MemoryScheduleCache is a process-local ScheduleCache for single-instance
// deployments and tests.
type MemoryScheduleCache struct {
	mu   sync.RWMutex
	data map[uuid.UUID][]byte
}

func NewMemoryScheduleCache() *MemoryScheduleCache {
	return &MemoryScheduleCache{
		data: make(map[uuid.UUID][]byte),
	}
}

func (m *MemoryScheduleCache) GetSchedule(_ context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, bool, error) {
	m.mu.RLock()
	val, ok := m.data[loanID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	var schedule domain.ScheduleResponse
	if err := json.Unmarshal(val, &schedule); err != nil {
		return nil, false, err
	}
	return &schedule, true, nil
}

func (m *MemoryScheduleCache) SetSchedule(_ context.Context, schedule *domain.ScheduleResponse) error {
	val, err := json.Marshal(schedule)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[schedule.LoanID] = val
	return nil
}

func (m *MemoryScheduleCache) Invalidate(_ context.Context, loanID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, loanID)
	return nil
}
