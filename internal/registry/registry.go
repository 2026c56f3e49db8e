// Package registry implements the counter registry: the four operations
// clients can perform on named counters, on top of a storage.Store.
package registry

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/developingchet/counterd/internal/counter"
	"github.com/developingchet/counterd/internal/metrics"
	"github.com/developingchet/counterd/internal/storage"
)

// Operation names, used as metric labels and log fields.
const (
	OpCreate    = "create"
	OpIncrement = "increment"
	OpRead      = "read"
	OpDelete    = "delete"
)

// Registry owns every live counter. All access goes through its methods;
// atomicity is delegated to the underlying Store.
type Registry struct {
	store storage.Store
}

// New returns a Registry backed by store.
func New(store storage.Store) *Registry {
	return &Registry{store: store}
}

// Create registers name with value zero. Fails with counter.ErrConflict if
// the name is already taken.
func (r *Registry) Create(ctx context.Context, name string) (counter.Counter, error) {
	if err := counter.ValidateName(name); err != nil {
		return counter.Counter{}, r.observe(OpCreate, name, err)
	}
	v, err := r.store.Create(ctx, name)
	if err != nil {
		return counter.Counter{}, r.observe(OpCreate, name, err)
	}
	metrics.CountersLive.Inc()
	r.observe(OpCreate, name, nil)
	return counter.Counter{Name: name, Value: v}, nil
}

// Increment adds one to name. It is the only mutation after creation.
func (r *Registry) Increment(ctx context.Context, name string) (counter.Counter, error) {
	if err := counter.ValidateName(name); err != nil {
		return counter.Counter{}, r.observe(OpIncrement, name, err)
	}
	v, err := r.store.Increment(ctx, name)
	if err != nil {
		return counter.Counter{}, r.observe(OpIncrement, name, err)
	}
	r.observe(OpIncrement, name, nil)
	return counter.Counter{Name: name, Value: v}, nil
}

// Read returns the current state of name without side effects.
func (r *Registry) Read(ctx context.Context, name string) (counter.Counter, error) {
	if err := counter.ValidateName(name); err != nil {
		return counter.Counter{}, r.observe(OpRead, name, err)
	}
	v, err := r.store.Get(ctx, name)
	if err != nil {
		return counter.Counter{}, r.observe(OpRead, name, err)
	}
	r.observe(OpRead, name, nil)
	return counter.Counter{Name: name, Value: v}, nil
}

// Delete removes name. Deleting an absent name reports counter.ErrNotFound.
func (r *Registry) Delete(ctx context.Context, name string) error {
	if err := counter.ValidateName(name); err != nil {
		return r.observe(OpDelete, name, err)
	}
	if err := r.store.Delete(ctx, name); err != nil {
		return r.observe(OpDelete, name, err)
	}
	metrics.CountersLive.Dec()
	r.observe(OpDelete, name, nil)
	return nil
}

// observe records the outcome of op and returns err unchanged.
func (r *Registry) observe(op, name string, err error) error {
	result := Result(err)
	metrics.Operations.WithLabelValues(op, result).Inc()

	if result == "error" {
		log.Error().Err(err).Str("op", op).Str("counter", name).Msg("store operation failed")
		return err
	}
	log.Debug().Str("op", op).Str("counter", name).Str("result", result).Msg("counter operation")
	return err
}

// Result maps an operation error onto its metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, counter.ErrConflict):
		return "conflict"
	case errors.Is(err, counter.ErrNotFound):
		return "not_found"
	case errors.Is(err, counter.ErrInvalidName):
		return "invalid"
	default:
		return "error"
	}
}
