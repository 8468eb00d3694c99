// Package memory implements the cache-backed blob store: a decorator that
// serves tiles from a cache.Provider and mirrors every mutation to a slower
// backing store.
//
// Cache reads and writes run on the calling goroutine. Backing store requests
// are queued to a single worker, so they reach the backing store in the order
// they were issued even when calls arrive concurrently. Whether a call waits
// for its backing request depends on the operation:
//
//	Get              cache, then backing on miss    waits
//	Put              cache then backing             waits
//	Delete           invalidate key                 waits
//	DeleteLayer      invalidate layer               waits
//	DeleteByGridSet  invalidate layer               fire-and-forget
//	DeleteRange      clear cache                    fire-and-forget
//	Rename           clear cache                    waits
//	Clear            clear cache                    fire-and-forget
//	Destroy          clear cache, stop worker       fire-and-forget
//
// The cache is always updated before the backing request is queued.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/internal/tracking"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
	"github.com/gaborage/tilecache/tile"
)

// DefaultQueueSize is the default capacity of the worker queue. Submitting to
// a full queue blocks.
const DefaultQueueSize = 1024

var errNoBlob = errors.New("tile has no blob")

// Option customizes a Store.
type Option func(*Store)

// WithQueueSize sets the worker queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// Store is the cache-backed storage.BlobStore.
type Store struct {
	log      logger.Logger
	provider cache.Provider
	backing  storage.BlobStore

	queueSize int
	queue     chan job
	stopping  chan struct{}
	stopped   chan struct{}
	stopOnce  sync.Once

	// Concurrent misses for one key share a single backing fetch
	flight singleflight.Group

	unregister func()
}

// Ensure Store implements storage.BlobStore
var _ storage.BlobStore = (*Store)(nil)

// New creates a Store over provider and backing and starts its worker.
// Destroy stops the worker.
func New(log logger.Logger, provider cache.Provider, backing storage.BlobStore, opts ...Option) *Store {
	s := &Store{
		log:       log,
		provider:  provider,
		backing:   backing,
		queueSize: DefaultQueueSize,
		stopping:  make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan job, s.queueSize)

	s.unregister = tracking.RegisterQueueDepth(func() int64 { return int64(len(s.queue)) })

	go s.run()

	s.log.Info().
		Str("provider", provider.Name()).
		Bool("available", provider.Available()).
		Int("queue_size", s.queueSize).
		Msg("Cache-backed blob store started")
	return s
}

// Provider returns the cache in front of the backing store.
func (s *Store) Provider() cache.Provider { return s.provider }

// Backing returns the decorated store.
func (s *Store) Backing() storage.BlobStore { return s.backing }

// Statistics returns the cache statistics.
func (s *Store) Statistics(ctx context.Context) *cache.Statistics {
	return s.provider.Statistics(ctx)
}

// QueueDepth returns the number of backing requests waiting for the worker.
func (s *Store) QueueDepth() int { return len(s.queue) }

// Done is closed once the worker has stopped.
func (s *Store) Done() <-chan struct{} { return s.stopped }

func (s *Store) run() {
	defer close(s.stopped)

	for {
		// Shutdown takes priority over queued work
		select {
		case <-s.stopping:
			s.shutdown()
			return
		default:
		}

		select {
		case <-s.stopping:
			s.shutdown()
			return
		case j := <-s.queue:
			s.process(j)
		}
	}
}

// shutdown abandons whatever is still queued and destroys the backing store.
func (s *Store) shutdown() {
	abandoned := 0
	for drained := false; !drained; {
		select {
		case j := <-s.queue:
			abandoned++
			if j.done != nil {
				j.done <- outcome{err: storage.ErrStoreDestroyed}
			}
		default:
			drained = true
		}
	}

	s.process(job{ctx: context.Background(), task: destroyTask{}})
	s.log.Debug().Int("abandoned", abandoned).Msg("Cache-backed blob store worker stopped")
}

func (s *Store) process(j job) {
	start := time.Now()
	ok, err := s.execute(j)
	tracking.RecordTask(j.ctx, j.task.name(), time.Since(start), err)

	if err != nil {
		err = storage.NewStorageError(j.task.name(), layerOf(j.task), err)
	}

	if j.done != nil {
		j.done <- outcome{ok: ok, err: err}
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("task", j.task.name()).Msg("Backing store task failed")
	}
}

// execute runs one task, turning a panicking backing store into an error so
// the worker survives it.
func (s *Store) execute(j job) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("backing store panic: %v", r)
		}
	}()
	return execute(j.ctx, s.backing, j.task)
}

// submit queues t. The task runs with ctx's values but is never cancelled
// once queued. A nil channel is returned when wait is false.
func (s *Store) submit(ctx context.Context, t task, wait bool) (<-chan outcome, error) {
	j := job{ctx: context.WithoutCancel(ctx), task: t}
	if wait {
		j.done = make(chan outcome, 1)
	}

	select {
	case <-s.stopping:
		return nil, storage.ErrStoreDestroyed
	default:
	}

	select {
	case s.queue <- j:
		return j.done, nil
	case <-s.stopping:
		return nil, storage.ErrStoreDestroyed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// wait queues t and blocks until the worker has run it.
func (s *Store) wait(ctx context.Context, t task) (outcome, error) {
	done, err := s.submit(ctx, t, true)
	if err != nil {
		return outcome{}, err
	}

	select {
	case o := <-done:
		return o, nil
	case <-s.stopped:
		select {
		case o := <-done:
			return o, nil
		default:
			return outcome{}, storage.ErrStoreDestroyed
		}
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// await is wait for operations reporting a result. Interrupted waits are
// logged and report false; the task itself still runs.
func (s *Store) await(ctx context.Context, t task) (bool, error) {
	o, err := s.wait(ctx, t)
	switch {
	case err == nil:
		return o.ok, o.err
	case errors.Is(err, storage.ErrStoreDestroyed):
		return false, err
	default:
		s.log.Error().Err(err).Str("task", t.name()).Msg("Waiting for backing store task failed")
		return false, nil
	}
}

// fire queues t without waiting for it.
func (s *Store) fire(ctx context.Context, t task) {
	if _, err := s.submit(ctx, t, false); err != nil {
		s.log.Warn().Err(err).Str("task", t.name()).Msg("Backing store task not submitted")
	}
}

// Flush waits until every backing request queued before the call has run.
func (s *Store) Flush(ctx context.Context) error {
	o, err := s.wait(ctx, barrierTask{})
	if err != nil {
		return err
	}
	return o.err
}

// Get serves obj from the cache, or fetches it from the backing store and
// caches a private copy. On success obj's blob is set.
func (s *Store) Get(ctx context.Context, obj *tile.Object) (bool, error) {
	if cached, ok := s.provider.Get(ctx, obj); ok {
		obj.SetBlob(cached.Blob)
		return true, nil
	}

	ch := s.flight.DoChan(cache.TileKey(obj), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), obj)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return false, r.Err
		}
		fetched, _ := r.Val.(*tile.Object)
		if fetched == nil {
			return false, nil
		}
		// Every caller gets its own bytes
		blob, err := tile.Detach(fetched.Blob)
		if err != nil {
			return false, storage.NewStorageError("get", obj.LayerName, err)
		}
		obj.SetBlob(blob)
		return true, nil
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Str("tile", obj.String()).Msg("Waiting for backing store fetch failed")
		return false, nil
	}
}

// fetch reads obj from the backing store into a fresh tile and caches it.
// The worker hands back the blob already in memory. A nil tile means not
// found.
func (s *Store) fetch(ctx context.Context, obj *tile.Object) (*tile.Object, error) {
	fetched := tile.NewObject(obj.LayerName, obj.XYZ, obj.GridSetID, obj.BlobFormat, maps.Clone(obj.Parameters))

	found, err := s.await(ctx, getTask{obj: fetched})
	if err != nil || !found {
		return nil, err
	}
	if fetched.Blob == nil {
		return nil, storage.NewStorageError("get", obj.LayerName, errNoBlob)
	}
	s.provider.Put(ctx, fetched)
	return fetched, nil
}

// detached returns a copy of obj whose blob lives in memory and shares
// nothing with obj's resource.
func detached(obj *tile.Object) (*tile.Object, error) {
	if obj.Blob == nil {
		return nil, errNoBlob
	}
	blob, err := tile.Detach(obj.Blob)
	if err != nil {
		return nil, err
	}
	return obj.WithBlob(blob), nil
}

// Put caches a private copy of obj and waits for the backing store write.
// The cached copy stays valid after the caller's resource is gone.
func (s *Store) Put(ctx context.Context, obj *tile.Object) error {
	cached, err := detached(obj)
	if err != nil {
		return storage.NewStorageError("put", obj.LayerName, err)
	}
	s.provider.Put(ctx, cached)

	_, err = s.await(ctx, putTask{obj: obj})
	return err
}

// Delete invalidates obj and waits for the backing store delete.
func (s *Store) Delete(ctx context.Context, obj *tile.Object) (bool, error) {
	s.provider.Remove(ctx, obj)
	return s.await(ctx, deleteTask{obj: obj})
}

// DeleteLayer invalidates the layer and waits for the backing store delete.
func (s *Store) DeleteLayer(ctx context.Context, layerName string) (bool, error) {
	s.provider.RemoveLayer(ctx, layerName)
	return s.await(ctx, deleteLayerTask{layer: layerName})
}

// DeleteByGridSet invalidates the whole layer and queues the backing store
// delete. It always reports success.
func (s *Store) DeleteByGridSet(ctx context.Context, layerName, gridSetID string) (bool, error) {
	s.provider.RemoveLayer(ctx, layerName)
	s.fire(ctx, deleteGridSetTask{layer: layerName, gridSet: gridSetID})
	return true, nil
}

// DeleteRange clears the cache and queues the backing store delete. It
// always reports success.
func (s *Store) DeleteRange(ctx context.Context, rng *tile.Range) (bool, error) {
	s.provider.Clear(ctx)
	s.fire(ctx, deleteRangeTask{rng: rng})
	return true, nil
}

// Rename clears the cache and waits for the backing store rename.
func (s *Store) Rename(ctx context.Context, oldLayerName, newLayerName string) (bool, error) {
	s.provider.Clear(ctx)
	return s.await(ctx, renameTask{oldName: oldLayerName, newName: newLayerName})
}

// Clear clears the cache and queues the backing store clear.
func (s *Store) Clear(ctx context.Context) error {
	s.provider.Clear(ctx)
	s.fire(ctx, clearTask{})
	return nil
}

// Destroy clears the cache and stops the worker. Requests still queued are
// abandoned; the backing store is destroyed last. Destroy does not wait.
func (s *Store) Destroy() {
	s.provider.Clear(context.Background())
	s.stopOnce.Do(func() {
		close(s.stopping)
		s.unregister()
	})
}

func (s *Store) AddListener(l storage.Listener) { s.backing.AddListener(l) }

func (s *Store) RemoveListener(l storage.Listener) bool { return s.backing.RemoveListener(l) }

func (s *Store) LayerMetadata(layerName, key string) string {
	return s.backing.LayerMetadata(layerName, key)
}

func (s *Store) PutLayerMetadata(layerName, key, value string) error {
	return s.backing.PutLayerMetadata(layerName, key, value)
}
