package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developingchet/counterd/internal/counter"
	"github.com/developingchet/counterd/internal/metrics"
	"github.com/developingchet/counterd/internal/storage"
)

func TestMain(m *testing.M) {
	orig := log.Logger
	log.Logger = zerolog.New(io.Discard)
	code := m.Run()
	log.Logger = orig
	os.Exit(code)
}

func newRegistry() *Registry {
	return New(storage.NewMemStore())
}

// failingStore returns err from every operation.
type failingStore struct {
	storage.MemStore
	err error
}

func (f *failingStore) Create(context.Context, string) (int64, error)    { return 0, f.err }
func (f *failingStore) Increment(context.Context, string) (int64, error) { return 0, f.err }
func (f *failingStore) Get(context.Context, string) (int64, error)       { return 0, f.err }
func (f *failingStore) Delete(context.Context, string) error             { return f.err }

func TestCreate_ReturnsZero(t *testing.T) {
	r := newRegistry()
	c, err := r.Create(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, counter.Counter{Name: "foo", Value: 0}, c)
}

func TestCreate_DuplicateConflicts(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	_, err := r.Create(ctx, "bar")
	require.NoError(t, err)

	_, err = r.Create(ctx, "bar")
	assert.ErrorIs(t, err, counter.ErrConflict)
}

func TestIncrement_AfterCreate(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	_, err := r.Create(ctx, "fiz")
	require.NoError(t, err)

	c, err := r.Increment(ctx, "fiz")
	require.NoError(t, err)
	assert.Equal(t, counter.Counter{Name: "fiz", Value: 1}, c)
}

func TestRead_ReflectsIncrements(t *testing.T) {
	for _, k := range []int{0, 1, 7, 42} {
		k := k
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			r := newRegistry()
			ctx := context.Background()
			_, err := r.Create(ctx, "raz")
			require.NoError(t, err)
			for i := 0; i < k; i++ {
				_, err := r.Increment(ctx, "raz")
				require.NoError(t, err)
			}

			c, err := r.Read(ctx, "raz")
			require.NoError(t, err)
			assert.Equal(t, int64(k), c.Value)

			// Read has no side effects.
			again, err := r.Read(ctx, "raz")
			require.NoError(t, err)
			assert.Equal(t, c, again)
		})
	}
}

func TestUnregisteredName_NotFound(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	_, err := r.Increment(ctx, "buz")
	assert.ErrorIs(t, err, counter.ErrNotFound)
	_, err = r.Read(ctx, "jaz")
	assert.ErrorIs(t, err, counter.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "tun"), counter.ErrNotFound)
}

func TestDelete_ThenReadNotFound(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	_, err := r.Create(ctx, "fun")
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "fun"))

	_, err = r.Read(ctx, "fun")
	assert.ErrorIs(t, err, counter.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "fun"), counter.ErrNotFound)
}

func TestInvalidName_NeverReachesStore(t *testing.T) {
	boom := errors.New("store must not be called")
	r := New(&failingStore{err: boom})
	ctx := context.Background()

	_, err := r.Create(ctx, "")
	assert.ErrorIs(t, err, counter.ErrInvalidName)
	_, err = r.Increment(ctx, " ")
	assert.ErrorIs(t, err, counter.ErrInvalidName)
	_, err = r.Read(ctx, "\t")
	assert.ErrorIs(t, err, counter.ErrInvalidName)
	assert.ErrorIs(t, r.Delete(ctx, ""), counter.ErrInvalidName)
}

func TestStoreError_Propagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := New(&failingStore{err: boom})
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.Operations.WithLabelValues(OpRead, "error"))

	_, err := r.Read(ctx, "foo")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Operations.WithLabelValues(OpRead, "error")))
}

func TestMetrics_OperationsByResult(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	createOK := metrics.Operations.WithLabelValues(OpCreate, "ok")
	createConflict := metrics.Operations.WithLabelValues(OpCreate, "conflict")
	incNotFound := metrics.Operations.WithLabelValues(OpIncrement, "not_found")

	okBefore := testutil.ToFloat64(createOK)
	conflictBefore := testutil.ToFloat64(createConflict)
	nfBefore := testutil.ToFloat64(incNotFound)

	_, _ = r.Create(ctx, "m1")
	_, _ = r.Create(ctx, "m1")
	_, _ = r.Increment(ctx, "m2")

	assert.Equal(t, okBefore+1, testutil.ToFloat64(createOK))
	assert.Equal(t, conflictBefore+1, testutil.ToFloat64(createConflict))
	assert.Equal(t, nfBefore+1, testutil.ToFloat64(incNotFound))
}

func TestMetrics_CountersLiveTracksCreateDelete(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	before := testutil.ToFloat64(metrics.CountersLive)
	_, err := r.Create(ctx, "g1")
	require.NoError(t, err)
	_, err = r.Create(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.CountersLive))

	require.NoError(t, r.Delete(ctx, "g1"))
	// Failed operations leave the gauge alone.
	_, _ = r.Create(ctx, "g2")
	_ = r.Delete(ctx, "g1")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CountersLive))
}

func TestConcurrentIncrements_NoLostUpdates(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	_, err := r.Create(ctx, "hits")
	require.NoError(t, err)

	const goroutines = 16
	const perG = 100
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				_, _ = r.Increment(ctx, "hits")
			}
		}()
	}
	wg.Wait()

	c, err := r.Read(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perG), c.Value)
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "conflict", Result(counter.ErrConflict))
	assert.Equal(t, "not_found", Result(fmt.Errorf("wrapped: %w", counter.ErrNotFound)))
	assert.Equal(t, "invalid", Result(counter.ErrInvalidName))
	assert.Equal(t, "error", Result(errors.New("boom")))
}
