// Package rlu implements Read-Log-Update, a concurrency-control
// primitive for shared in-memory object graphs. Readers traverse
// objects without taking any lock or performing a CAS; writers stage
// their edits in a private per-thread copy and publish it with a
// single CAS on the object's copy pointer. A committing writer
// advances a global clock and waits out a grace period before
// reclaiming anything a reader might still observe.
//
// A goroutine acquires a ThreadContext once, via Runtime.Thread, and
// opens one Session at a time from it:
//
//	rt := rlu.NewRuntime[int]()
//	tc, err := rt.Thread()
//	h := rt.Alloc(3)
//
//	s := tc.Session()
//	v := s.ReadLock(h) // 3
//	if ptr, ok := s.WriteLock(h); ok {
//		ptr.Set(v + 1)
//	}
//	s.Close()
//
// Sessions are not safe for concurrent use by more than one goroutine,
// and a ThreadContext supports only one open Session at a time.
package rlu
