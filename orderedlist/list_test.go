package orderedlist

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/tiancaiamao/rlu/rlu"
)

func mustThread[V any](t *testing.T, rt *rlu.Runtime[V]) *rlu.ThreadContext[V] {
	t.Helper()
	tc, err := rt.Thread()
	require.NoError(t, err)
	return tc
}

// acquireThread is used from goroutines other than the test's own,
// where testify's require/FailNow must not be called.
func acquireThread[V any](rt *rlu.Runtime[V]) *rlu.ThreadContext[V] {
	tc, err := rt.Thread()
	if err != nil {
		panic(err)
	}
	return tc
}

// Scenario 4: single-thread sequential operations against an initially
// empty set, with the snapshot checked after the inserts, after the
// first delete, and once the set is empty again.
func TestSequentialOperations(t *testing.T) {
	rt := rlu.NewRuntime[node[int]]()
	l := New[int](rt)
	tc := mustThread(t, rt)

	require.False(t, l.Contains(tc, 1))

	require.False(t, l.Delete(tc, 1))

	require.True(t, l.Insert(tc, 2))
	require.True(t, l.Insert(tc, 0))
	require.True(t, l.Insert(tc, 1))
	require.Equal(t, []int{0, 1, 2}, l.Snapshot(tc))

	require.False(t, l.Insert(tc, 1), "1 is already present")

	require.True(t, l.Delete(tc, 1))
	require.Equal(t, []int{0, 2}, l.Snapshot(tc))

	require.False(t, l.Delete(tc, 1), "1 was already removed")

	require.True(t, l.Delete(tc, 0))
	require.True(t, l.Delete(tc, 2))
	require.Equal(t, []int{}, l.Snapshot(tc))
	require.Equal(t, 0, l.Len(tc))
}

// Scenario 5: a set preloaded with every even number in [0, 1000),
// hammered by 16 read-only threads querying random even keys
// concurrently with 4 writer threads inserting and deleting random odd
// keys in [1, 999]. Since writers only ever touch odd keys, every even
// key a reader queries must be observed present throughout.
func TestConcurrentReadersAndWriters(t *testing.T) {
	rt := rlu.NewRuntime[node[int]](rlu.WithMaxThreads(24))
	l := New[int](rt)

	seed := mustThread(t, rt)
	for i := 0; i < 1000; i += 2 {
		require.True(t, l.Insert(seed, i))
	}

	// Readers run until the writer group (below) finishes; writers run
	// a fixed op count and then return, which cancels the shared
	// context and stops the readers.
	readCtx, stopReaders := context.WithCancel(context.Background())
	var readers errgroup.Group

	const numReaders = 16
	for i := 0; i < numReaders; i++ {
		seed := int64(i)
		readers.Go(func() error {
			tc := acquireThread(rt)
			rng := rand.New(rand.NewSource(seed))
			for readCtx.Err() == nil {
				key := rng.Intn(500) * 2
				assert.True(t, l.Contains(tc, key))
			}
			return nil
		})
	}

	var writers errgroup.Group
	const writeOps = 200
	for i := 0; i < 4; i++ {
		seed := int64(i)
		writers.Go(func() error {
			tc := acquireThread(rt)
			rng := rand.New(rand.NewSource(seed + 1000))
			for j := 0; j < writeOps; j++ {
				key := rng.Intn(500)*2 + 1
				if rng.Intn(2) == 0 {
					l.Insert(tc, key)
				} else {
					l.Delete(tc, key)
				}
			}
			return nil
		})
	}

	require.NoError(t, writers.Wait())
	stopReaders()
	require.NoError(t, readers.Wait())

	final := mustThread(t, rt)
	snapshot := l.Snapshot(final)
	require.True(t, sort.IntsAreSorted(snapshot))
	for i := 0; i < 1000; i += 2 {
		assert.Contains(t, snapshot, i)
	}
}

// TestDeferredFreeDuringTraversal exercises Scenario 6's deferred-free
// guarantee end to end: a reader's session opens and reads far enough
// to have read-locked a node, a writer deletes that very node and
// frees it, and the reader's still-open session must keep observing
// the node's pre-deletion value, since the writer's write clock postdates
// the reader's local clock.
func TestDeferredFreeDuringTraversal(t *testing.T) {
	rt := rlu.NewRuntime[node[int]](rlu.WithMaxThreads(4))
	l := New[int](rt)

	seed := mustThread(t, rt)
	require.True(t, l.Insert(seed, 1))
	require.True(t, l.Insert(seed, 2))
	require.True(t, l.Insert(seed, 3))

	reader := mustThread(t, rt)
	rs := reader.Session()
	pair := l.find(rs, 2)
	require.True(t, pair.hasNext)
	require.Equal(t, 2, rs.ReadLock(pair.next).value)

	// Delete's commit blocks in synchronize() until rs closes, since
	// rs's local clock predates the delete's write clock; run it
	// concurrently with the reader rather than before closing rs.
	writer := mustThread(t, rt)
	deleted := make(chan bool, 1)
	go func() {
		deleted <- l.Delete(writer, 2)
	}()

	// The reader's session predates the delete's write clock: it must
	// still see the node it already read-locked, however far the
	// concurrent delete's commit has progressed.
	require.Equal(t, 2, rs.ReadLock(pair.next).value)
	rs.Close()

	require.True(t, <-deleted)

	final := mustThread(t, rt)
	require.Equal(t, []int{1, 3}, l.Snapshot(final))
}
