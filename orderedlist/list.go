// Package orderedlist is the RLU runtime's reference collaborator: a
// sorted singly-linked set of unique, totally-ordered values, built
// exclusively through the rlu package's public API. It exists to
// exercise multi-object write locking, pointer reassignment, and the
// abort-and-retry discipline a real RLU user must follow.
package orderedlist

import (
	"cmp"

	"github.com/tiancaiamao/rlu/internal/rludebug"
	"github.com/tiancaiamao/rlu/rlu"
)

// node is the list's element type: a value plus a handle to the next
// node, or a zero Handle for "no next". The head sentinel is a node
// whose value is never read.
type node[K cmp.Ordered] struct {
	value   K
	hasNext bool
	next    rlu.Handle[node[K]]
}

// List is a sorted singly-linked ordered-set of unique values of type
// K. All access goes through an rlu.ThreadContext obtained from the
// same Runtime the List was built on.
type List[K cmp.Ordered] struct {
	rt   *rlu.Runtime[node[K]]
	head rlu.Handle[node[K]]
}

// New builds an empty ordered-set on rt, allocating the head sentinel
// through rt.Alloc.
func New[K cmp.Ordered](rt *rlu.Runtime[node[K]]) *List[K] {
	return &List[K]{
		rt:   rt,
		head: rt.Alloc(node[K]{}),
	}
}

// locatedPair is the read-locked (prev, next) straddle a value would
// occupy: prev.next == next, and next is either absent or next.value
// >= the searched-for value. prev is the zero Handle when the value
// belongs immediately after the head sentinel.
type locatedPair[K cmp.Ordered] struct {
	hasPrev bool
	prev    rlu.Handle[node[K]]
	hasNext bool
	next    rlu.Handle[node[K]]
}

// find walks the list under read locks only, returning the pair that
// brackets value.
func (l *List[K]) find(s *rlu.Session[node[K]], value K) locatedPair[K] {
	var pair locatedPair[K]

	headNode := s.ReadLock(l.head)
	if !headNode.hasNext {
		return pair
	}

	prevHandle := rlu.Handle[node[K]]{}
	hasPrev := false
	nextHandle := headNode.next

	for {
		nextNode := s.ReadLock(nextHandle)
		if nextNode.value >= value {
			pair.hasPrev = hasPrev
			pair.prev = prevHandle
			pair.hasNext = true
			pair.next = nextHandle
			return pair
		}
		if !nextNode.hasNext {
			pair.hasPrev = true
			pair.prev = nextHandle
			pair.hasNext = false
			return pair
		}
		prevHandle = nextHandle
		hasPrev = true
		nextHandle = nextNode.next
	}
}

// locatedLocks is find's write-locked counterpart: write pointers for
// prev (or the head sentinel when prev is absent) and, when present,
// next.
type locatedLocks[K cmp.Ordered] struct {
	prevPtr    rlu.WritePtr[node[K]]
	hasNext    bool
	nextHandle rlu.Handle[node[K]]
	nextPtr    rlu.WritePtr[node[K]]
}

// findLock retries find until it can write-lock both sides of the
// bracket. mustExist short-circuits: if the caller expects the value
// to already be present (delete) but the current next pointer
// disagrees, or if the caller expects it to be absent (insert) but
// the current next pointer already matches, findLock returns
// ok=false without ever taking a write lock, so the caller can act on
// the precondition failure immediately instead of retrying forever.
// (mustExist is false for Insert and true for Delete, matching the
// short-circuit rule above rather than the opposite labeling in the
// worked insert/delete examples; see SPEC_FULL.md §4.5.)
func (l *List[K]) findLock(tc *rlu.ThreadContext[node[K]], value K, mustExist bool) (rlu.Session[node[K]], locatedLocks[K], bool) {
	for {
		s := tc.Session()
		pair := l.find(s, value)

		exists := pair.hasNext && func() bool {
			n := s.ReadLock(pair.next)
			return n.value == value
		}()
		if exists != mustExist {
			return *s, locatedLocks[K]{}, false
		}

		var locks locatedLocks[K]
		locks.hasNext = pair.hasNext

		prevHandle := l.head
		if pair.hasPrev {
			prevHandle = pair.prev
		}
		prevPtr, ok := s.WriteLock(prevHandle)
		if !ok {
			s.Abort()
			continue
		}
		rludebug.Assert(prevPtr.Valid(), "WriteLock reported success with an invalid WritePtr")
		locks.prevPtr = prevPtr

		if pair.hasNext {
			nextPtr, ok := s.WriteLock(pair.next)
			if !ok {
				s.Abort()
				continue
			}
			rludebug.Assert(nextPtr.Valid(), "WriteLock reported success with an invalid WritePtr")
			locks.nextHandle = pair.next
			locks.nextPtr = nextPtr
		}

		return *s, locks, true
	}
}

// Insert adds value to the set if it is not already present, reporting
// whether the set changed.
func (l *List[K]) Insert(tc *rlu.ThreadContext[node[K]], value K) bool {
	s, locks, ok := l.findLock(tc, value, false)
	if !ok {
		s.Close()
		return false
	}

	newHandle := l.rt.Alloc(node[K]{
		value:   value,
		hasNext: locks.hasNext,
		next:    locks.nextHandle,
	})

	prev := locks.prevPtr.Get()
	prev.hasNext = true
	prev.next = newHandle
	locks.prevPtr.Set(prev)

	s.Close()
	return true
}

// Delete removes value from the set if present, reporting whether the
// set changed.
func (l *List[K]) Delete(tc *rlu.ThreadContext[node[K]], value K) bool {
	s, locks, ok := l.findLock(tc, value, true)
	if !ok {
		s.Close()
		return false
	}

	doomed := locks.nextPtr.Get()

	prev := locks.prevPtr.Get()
	prev.hasNext = doomed.hasNext
	prev.next = doomed.next
	locks.prevPtr.Set(prev)

	tc.Free(locks.nextHandle)

	s.Close()
	return true
}

// Contains reports whether value is currently in the set.
func (l *List[K]) Contains(tc *rlu.ThreadContext[node[K]], value K) bool {
	s := tc.Session()
	defer s.Close()

	pair := l.find(s, value)
	if !pair.hasNext {
		return false
	}
	return s.ReadLock(pair.next).value == value
}

// Len returns the number of elements currently in the set.
func (l *List[K]) Len(tc *rlu.ThreadContext[node[K]]) int {
	return len(l.Snapshot(tc))
}

// Snapshot returns every value currently in the set, in ascending
// order, as observed by one read-locked traversal.
func (l *List[K]) Snapshot(tc *rlu.ThreadContext[node[K]]) []K {
	s := tc.Session()
	defer s.Close()

	out := []K{}
	headNode := s.ReadLock(l.head)
	if !headNode.hasNext {
		return out
	}
	cur := headNode.next
	var prevValue K
	first := true
	for {
		n := s.ReadLock(cur)
		rludebug.Assert(first || n.value > prevValue, "ordered-set lost its ordering invariant")
		out = append(out, n.value)
		prevValue = n.value
		first = false
		if !n.hasNext {
			return out
		}
		cur = n.next
	}
}
