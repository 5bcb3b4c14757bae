// internal/infrastructure/database/redis/idempotency.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idempotency"
	pendingMarker     = "pending"
	orderMarker       = "order:"
)

// ClaimState describes what a caller found when claiming a key
type ClaimState int

const (
	// ClaimAcquired means the caller owns the key and must run the request
	ClaimAcquired ClaimState = iota
	// ClaimInFlight means another request with the same key has not finished
	ClaimInFlight
	// ClaimCompleted means the key already produced an order
	ClaimCompleted
)

// Claim is the result of IdempotencyStore.Claim
type Claim struct {
	State   ClaimState
	OrderID uint
}

// IdempotencyStore remembers which order a client-supplied key produced
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewIdempotencyStore creates a store whose keys expire after ttl
func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim reserves key for userID with SET NX.
// Keys are scoped per user so one shopper cannot observe another's order.
func (s *IdempotencyStore) Claim(ctx context.Context, userID uint, key string) (Claim, error) {
	k := s.key(userID, key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return Claim{State: ClaimAcquired}, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return Claim{}, fmt.Errorf("claim idempotency key: %w", err)
		}
		if ok {
			return Claim{State: ClaimAcquired}, nil
		}
		return Claim{State: ClaimInFlight}, nil
	}
	if err != nil {
		return Claim{}, fmt.Errorf("read idempotency key: %w", err)
	}

	return parseClaim(val), nil
}

// Complete records the order produced under key
func (s *IdempotencyStore) Complete(ctx context.Context, userID uint, key string, orderID uint) error {
	val := orderMarker + strconv.FormatUint(uint64(orderID), 10)
	if err := s.client.Set(ctx, s.key(userID, key), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops a pending claim so the client may retry after a failure
func (s *IdempotencyStore) Release(ctx context.Context, userID uint, key string) error {
	k := s.key(userID, key)
	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read idempotency key: %w", err)
	}
	if val != pendingMarker {
		return nil
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(userID uint, key string) string {
	return fmt.Sprintf("%s:%d:%s", idempotencyPrefix, userID, key)
}

func parseClaim(val string) Claim {
	if !strings.HasPrefix(val, orderMarker) {
		return Claim{State: ClaimInFlight}
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(val, orderMarker), 10, 64)
	if err != nil {
		return Claim{State: ClaimInFlight}
	}
	return Claim{State: ClaimCompleted, OrderID: uint(id)}
}
