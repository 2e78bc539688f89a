package db

import (
	"context"
	"time"
)

// Store is the durable store facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces (ISP), not on Store.
type Store interface {
	Pinger
	KVStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations. SetNX is the conditional
// insert-if-absent write the pipeline relies on for dedup records and summary
// idempotency: under concurrent attempts for one key exactly one caller
// observes inserted=true.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ListStore provides append-only list operations, used for reasoning trace
// steps, stage events, the recent-dedup window, and the requeue list.
type ListStore interface {
	RPush(ctx context.Context, key string, values ...[]byte) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	LPop(ctx context.Context, key string, count int64) ([][]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}
