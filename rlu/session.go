package rlu

import "github.com/tiancaiamao/rlu/internal/rludebug"

// Session is a scoped critical section bracketed by parity-flips of
// its thread's run counter. It must be released on every exit path —
// typically via `defer s.Close()` — and re-entrant sessions on the
// same ThreadContext are not supported.
type Session[V any] struct {
	tc      *ThreadContext[V]
	aborted bool
	closed  bool
}

// ReadLock returns the value this session should see for h, per the
// dereference rule: a handle that is itself a copy returns its own
// value; an unlocked original returns its value directly; a locked
// original returns the owning writer's in-progress value if that
// writer is this session, or if the writer's write clock is already
// visible to this session's local clock, and otherwise falls back to
// the original's still-current value.
func (s *Session[V]) ReadLock(h Handle[V]) V {
	if s.closed {
		panic("rlu: ReadLock called on a closed session")
	}

	if h.cp != nil {
		return h.cp.value
	}

	orig := h.orig
	cp := orig.copyPtr.Load()
	if cp == nil {
		return orig.value
	}
	if cp.threadID == s.tc.id {
		return cp.value
	}

	owner := &s.tc.rt.threads[cp.threadID]
	if owner.writeClock.Load() <= s.tc.localClock.Load() {
		return cp.value
	}
	return orig.value
}

// WriteLock attempts to obtain a private, writable view of h's value.
// On success it returns a valid WritePtr and true, and marks this
// session as a writer. On failure — another thread already holds the
// write lock, or this thread's write log is full — it returns a zero
// WritePtr and false; per the ordered-set usage pattern, the caller
// should Abort and retry. A full write log is a capacity violation and
// panics in builds with the rludebug tag.
func (s *Session[V]) WriteLock(h Handle[V]) (WritePtr[V], bool) {
	if s.closed {
		panic("rlu: WriteLock called on a closed session")
	}
	s.tc.isWriter = true

	var orig *original[V]
	if h.cp != nil {
		if h.cp.threadID == s.tc.id {
			return WritePtr[V]{cell: h.cp}, true
		}
		orig = h.cp.original
	} else {
		orig = h.orig
	}

	if cur := orig.copyPtr.Load(); cur != nil {
		if cur.threadID == s.tc.id {
			return WritePtr[V]{cell: cur}, true
		}
		s.tc.logger().Debug("rlu: write-lock contention", zapThreadID(s.tc.id))
		return WritePtr[V]{}, false
	}

	slot, ok := s.tc.activeLog.nextEntry()
	if !ok {
		rludebug.Assert(false, "thread %d exceeded its write-log capacity", s.tc.id)
		s.tc.logger().Warn("rlu: write log capacity exceeded", zapThreadID(s.tc.id))
		return WritePtr[V]{}, false
	}
	slot.threadID = s.tc.id
	slot.original = orig
	slot.value = orig.value

	if !orig.copyPtr.CompareAndSwap(nil, slot) {
		s.tc.activeLog.releaseLast()
		return WritePtr[V]{}, false
	}
	return WritePtr[V]{cell: slot}, true
}

// Abort ends the session on the abort path: it immediately releases
// the session's write locks without writing anything back, returns
// the thread to quiescent, and marks the session closed. A later
// Close is a no-op, so the session may simply be dropped after Abort.
func (s *Session[V]) Abort() {
	if s.closed || s.aborted {
		return
	}
	s.aborted = true
	s.tc.abortSession()
	s.closed = true
}

// Close ends the session: if it was aborted, this is a no-op (Abort
// already released everything); otherwise, if the session wrote
// anything, it runs the full commit protocol, and if it only read, it
// simply returns the thread to quiescent.
func (s *Session[V]) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.tc.isWriter {
		s.tc.commit()
	} else {
		s.tc.runCounter.Add(1)
	}
}
