package storage

import (
	"context"
	"fmt"
)

// Store is the single guarded container for counter state. Every method is
// atomic with respect to every other; implementations must be safe for
// concurrent use.
//
// Errors from the counter package (ErrConflict, ErrNotFound) are returned
// unwrapped so callers can match them with errors.Is.
type Store interface {
	// Create inserts name with value zero. Returns counter.ErrConflict and
	// leaves state untouched if name already exists.
	Create(ctx context.Context, name string) (int64, error)

	// Increment adds one to name and returns the new value.
	Increment(ctx context.Context, name string) (int64, error)

	Get(ctx context.Context, name string) (int64, error)
	Delete(ctx context.Context, name string) error

	// Len returns the number of live counters.
	Len(ctx context.Context) (int, error)

	Ping(ctx context.Context) error

	// DBPath returns the filesystem path of the database file ("" when the
	// backend has none).
	DBPath() string

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// Options selects and parameterises a backend.
type Options struct {
	Backend string
	// BoltPath is the database file for the bolt backend.
	BoltPath string
	Redis    RedisOptions
}

// Open returns the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemStore(), nil
	case BackendBolt:
		return OpenBolt(opts.BoltPath)
	case BackendRedis:
		return OpenRedis(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
