package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"

	customError "github.com/segyhp/loan-ledger/pkg/errors"
)

// Locker serializes work on a single loan. Lock blocks until the loan is
// free or ctx is done; the returned func releases it and is safe to call
// more than once.
type Locker interface {
	Lock(ctx context.Context, loanID uuid.UUID) (func(), error)
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker with one slot per loan. Entries are
// dropped once nobody holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyLock
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[uuid.UUID]*keyLock),
	}
}

func (k *KeyedMutex) Lock(ctx context.Context, loanID uuid.UUID) (func(), error) {
	k.mu.Lock()
	l, exists := k.locks[loanID]
	if !exists {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[loanID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(loanID, l)
		return nil, customError.WrapLockUnavailable(loanID.String(), ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(loanID, l)
		})
	}, nil
}

func (k *KeyedMutex) release(loanID uuid.UUID, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, loanID)
	}
}

// size is the number of loans currently tracked.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
