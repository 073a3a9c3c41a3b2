package rlu

import "sync/atomic"

// original is the canonical storage cell for a managed value: the
// payload plus an atomic pointer to whichever copy currently holds
// the write lock, nil when unlocked.
type original[V any] struct {
	value   V
	copyPtr atomic.Pointer[copyCell[V]]
}

// copyCell is a private per-thread shadow of an original's value,
// staged by WriteLock and published via CAS on original.copyPtr.
// It carries its own back-pointer to the original so that a later
// WriteLock call on a handle that is itself a copy never needs to
// re-read the original's copy pointer (see the "pointer graphs"
// design note).
type copyCell[V any] struct {
	threadID int
	original *original[V]
	value    V
}

// Handle is a small, sealed reference to a managed object: either an
// original (the only variant Alloc produces) or, internally, a copy
// cell threaded through a write-locked session. Only this package can
// construct one, so a caller can never forge a copy-tagged Handle and
// hand it to ReadLock/WriteLock out of session.
type Handle[V any] struct {
	orig *original[V]
	cp   *copyCell[V]
}

// WritePtr is the mutable view into a copy cell returned by a
// successful WriteLock. It is valid only for the lifetime of the
// session that produced it.
type WritePtr[V any] struct {
	cell *copyCell[V]
}

// Set stages v as the new value of the write-locked object. The write
// becomes visible to other sessions only once the owning session
// commits.
func (w WritePtr[V]) Set(v V) { w.cell.value = v }

// Get returns the value currently staged in the write-locked copy,
// i.e. what a subsequent ReadLock on the same handle would return
// within this session.
func (w WritePtr[V]) Get() V { return w.cell.value }

// Valid reports whether w refers to a locked copy cell. A WritePtr
// returned alongside a false "ok" from WriteLock is always invalid.
func (w WritePtr[V]) Valid() bool { return w.cell != nil }
