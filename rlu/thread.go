package rlu

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tiancaiamao/rlu/internal/rludebug"
)

// noWriteClock marks a thread as not currently committing: its
// writeClock is "infinity" so no reader ever considers it closer than
// their own local clock.
const noWriteClock = ^uint64(0)

// ThreadContext holds one goroutine's RLU-private state: its run
// counter (parity encodes quiescent/in-session), its local and write
// clocks, the is-writer flag, its two write logs, and its free list.
// All fields except runCounter, localClock and writeClock are
// single-writer, touched only by the owning goroutine; those three
// are read by other threads during synchronization and are therefore
// atomics.
type ThreadContext[V any] struct {
	id    int
	label string
	rt    *Runtime[V]

	runCounter atomic.Uint64
	localClock atomic.Uint64
	writeClock atomic.Uint64

	isWriter bool

	activeLog *writeLog[V]
	prevLog   *writeLog[V]
	freeList  []Handle[V]
}

// ID returns the thread context's slot index within its runtime.
func (tc *ThreadContext[V]) ID() int { return tc.id }

// Label returns the thread's debug label, set only when the runtime
// was built WithThreadLabeler; otherwise it is the empty string.
func (tc *ThreadContext[V]) Label() string { return tc.label }

// Session begins a critical section: it loads the global clock into
// the local clock and flips the run counter from even to odd. The
// returned Session must be released exactly once, via Close or Abort
// (Close after Abort is a no-op).
func (tc *ThreadContext[V]) Session() *Session[V] {
	rludebug.Assert(tc.runCounter.Load()%2 == 0,
		"Session called while thread %d already has one open", tc.id)

	tc.localClock.Store(tc.rt.globalClock.Load())
	tc.runCounter.Add(1)
	tc.isWriter = false
	return &Session[V]{tc: tc}
}

// Free defers reclamation of h until this thread's next successful
// commit has synchronized with every other thread, guaranteeing no
// reader can still be dereferencing it. It must be called from within
// a session that has write-locked h.
func (tc *ThreadContext[V]) Free(h Handle[V]) {
	rludebug.Assert(tc.isWriter, "Free called from thread %d outside a write session", tc.id)

	if len(tc.freeList) >= cap(tc.freeList) {
		rludebug.Assert(false, "thread %d exceeded its deferred-free capacity", tc.id)
		tc.logger().Warn("rlu: deferred-free list full, dropping oldest entry",
			zap.Int("thread_id", tc.id))
		copy(tc.freeList, tc.freeList[1:])
		tc.freeList = tc.freeList[:len(tc.freeList)-1]
	}
	tc.freeList = append(tc.freeList, h)
}

func (tc *ThreadContext[V]) logger() *zap.Logger { return tc.rt.logger }

// commit runs the release-without-abort path: bump the global clock,
// wait out the grace period, write copies back into their originals,
// unlock, rotate logs, and reclaim anything deferred this epoch.
func (tc *ThreadContext[V]) commit() {
	wc := tc.rt.globalClock.Add(1)
	tc.writeClock.Store(wc)

	tc.synchronize()
	tc.writebackLogs()
	tc.unlockWriteLog()
	tc.writeClock.Store(noWriteClock)
	tc.swapLogs()
	tc.drainFreeList()

	tc.runCounter.Add(1)
}

// abortSession releases every write lock this session acquired
// without writing anything back, then returns to quiescent.
func (tc *ThreadContext[V]) abortSession() {
	if tc.isWriter {
		tc.unlockWriteLog()
		tc.activeLog.reset()
	}
	tc.runCounter.Add(1)
}

func (tc *ThreadContext[V]) writebackLogs() {
	for i := range tc.activeLog.active() {
		entry := &tc.activeLog.entries[i]
		entry.original.value = entry.value
	}
}

func (tc *ThreadContext[V]) unlockWriteLog() {
	for i := range tc.activeLog.active() {
		tc.activeLog.entries[i].original.copyPtr.Store(nil)
	}
}

func (tc *ThreadContext[V]) swapLogs() {
	tc.activeLog, tc.prevLog = tc.prevLog, tc.activeLog
	tc.activeLog.reset()
}

func (tc *ThreadContext[V]) drainFreeList() {
	for i := range tc.freeList {
		tc.freeList[i] = Handle[V]{}
	}
	tc.freeList = tc.freeList[:0]
}

// synchronize is the grace-period wait: for every other registered
// thread, block until it is observably no longer in a session that
// could still see the pre-commit world.
func (tc *ThreadContext[V]) synchronize() {
	threads := tc.rt.registeredThreads()
	snapshot := make([]uint64, len(threads))
	for i, t := range threads {
		snapshot[i] = t.runCounter.Load()
	}

	wc := tc.writeClock.Load()
	for i, t := range threads {
		if t == tc {
			continue
		}
		if snapshot[i]%2 == 0 {
			continue // already quiescent at snapshot time
		}
		for {
			if t.runCounter.Load() != snapshot[i] {
				break // t has since left its session
			}
			if wc <= t.localClock.Load() {
				break // t's session began after we advanced the clock
			}
			runtime.Gosched()
		}
	}
}
