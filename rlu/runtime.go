package rlu

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runtime is the shared, long-lived owner of the global clock and the
// fixed pool of thread contexts. It is safe for concurrent use by
// many goroutines; the only operations it exposes directly are
// allocation and thread registration.
type Runtime[V any] struct {
	globalClock atomic.Uint64
	numThreads  atomic.Int64

	threads []ThreadContext[V]

	maxThreads       int
	logCapacity      int
	freeListCapacity int
	logger           *zap.Logger
	labelThreads     bool
}

// NewRuntime constructs a Runtime with the given options, or the
// spec's reference defaults (32 threads, 32 copies/thread,
// 32 deferred frees/commit) if none are given.
func NewRuntime[V any](opts ...Option) *Runtime[V] {
	cfg := newConfig(opts...)
	rt := &Runtime[V]{
		maxThreads:       cfg.maxThreads,
		logCapacity:      cfg.logCapacity,
		freeListCapacity: cfg.freeListCapacity,
		logger:           cfg.logger,
		labelThreads:     cfg.labelThreads,
	}
	rt.threads = make([]ThreadContext[V], cfg.maxThreads)
	return rt
}

// Alloc heap-allocates a managed original holding value and returns a
// handle to it. This cannot fail under normal operation.
func (rt *Runtime[V]) Alloc(value V) Handle[V] {
	return Handle[V]{orig: &original[V]{value: value}}
}

// Thread reserves the next thread-context slot for the calling
// goroutine. It must be called at most once per goroutine per
// runtime, and at most WithMaxThreads times per runtime; beyond that
// it returns ErrTooManyThreads.
func (rt *Runtime[V]) Thread() (*ThreadContext[V], error) {
	idx := rt.numThreads.Add(1) - 1
	if idx >= int64(rt.maxThreads) {
		rt.logger.Warn("rlu: thread capacity exhausted",
			zap.Int("max_threads", rt.maxThreads))
		return nil, ErrTooManyThreads
	}

	tc := &rt.threads[idx]
	tc.id = int(idx)
	tc.rt = rt
	tc.writeClock.Store(noWriteClock)
	tc.activeLog = newWriteLog[V](rt.logCapacity)
	tc.prevLog = newWriteLog[V](rt.logCapacity)
	tc.freeList = make([]Handle[V], 0, rt.freeListCapacity)
	if rt.labelThreads {
		tc.label = uuid.NewString()
	}

	rt.logger.Debug("rlu: thread registered",
		zap.Int("thread_id", tc.id), zap.String("label", tc.label))
	return tc, nil
}

// registeredThreads returns every currently-registered thread context,
// for use by a committing writer's synchronization pass.
func (rt *Runtime[V]) registeredThreads() []*ThreadContext[V] {
	n := int(rt.numThreads.Load())
	if n > rt.maxThreads {
		n = rt.maxThreads
	}
	out := make([]*ThreadContext[V], n)
	for i := 0; i < n; i++ {
		out[i] = &rt.threads[i]
	}
	return out
}
