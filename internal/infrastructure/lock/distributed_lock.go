package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// Distributed lock
// ============================================================================
//
// The per-account funds lock serializes balance-gated requests from the
// same account before they reach the database:
//
//   without the lock:
//     request1: read balance=100 -> reserve 100 -> balance=0   ok
//     request2: read balance=100 -> reserve 100 -> conditional
//               debit matches zero rows -> optimistic-lock retry
//
//   with the lock:
//     request1: acquire -> reserve -> release
//     request2: wait -> acquire -> read balance=0 -> insufficient funds
//
// The conditional debit (balance >= amount AND version = ?) remains the
// authoritative guard either way; the lock turns retry storms into
// orderly queuing.
//
// Acquire: SET key value NX EX timeout. The value identifies the holder
// so release cannot delete someone else's lock. Release runs a Lua
// script so the ownership check and the DEL are one atomic step.
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("failed to acquire distributed lock")
	ErrLockExpired = errors.New("lock expired")
)

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // holder identity, verified on release
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock attempts a single non-blocking acquisition.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	// The expiration keeps a crashed holder from wedging the account
	// forever.
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock blocks with bounded retries.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock releases the lock if and only if this instance still holds it.
// If the lock expired and was re-acquired by another request, the
// ownership check keeps us from deleting their lock.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewFundsLock creates the per-account lock taken in front of any
// balance-gated mutation (withdrawal creation, node activation).
//
// Locking per account, not globally: different accounts never contend,
// while two requests draining the same balance queue up. The value is the
// request ID so a stuck lock can be traced back to its holder.
func NewFundsLock(client *redis.Client, accountID int64, requestID string) *DistributedLock {
	key := fmt.Sprintf("funds:lock:account:%d", accountID)
	return NewDistributedLock(client, key, requestID, 30*time.Second)
}
