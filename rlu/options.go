package rlu

import "go.uber.org/zap"

const (
	defaultMaxThreads       = 32
	defaultLogCapacity      = 32
	defaultFreeListCapacity = 32
)

type config struct {
	maxThreads       int
	logCapacity      int
	freeListCapacity int
	logger           *zap.Logger
	labelThreads     bool
}

func newConfig(opts ...Option) config {
	cfg := config{
		maxThreads:       defaultMaxThreads,
		logCapacity:      defaultLogCapacity,
		freeListCapacity: defaultFreeListCapacity,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a Runtime at construction time. The spec's
// capacity bounds (max threads, max copies per thread, max deferred
// frees per commit) are fixed once a Runtime is built; there is no
// way to grow them afterwards.
type Option func(*config)

// WithMaxThreads sets the fixed number of ThreadContext slots the
// runtime can hand out. Calling Runtime.Thread beyond this bound
// returns ErrTooManyThreads. Default 32.
func WithMaxThreads(n int) Option {
	return func(c *config) { c.maxThreads = n }
}

// WithLogCapacity sets the fixed number of outstanding copies a
// single thread's write log may hold in one session. Default 32.
func WithLogCapacity(n int) Option {
	return func(c *config) { c.logCapacity = n }
}

// WithFreeListCapacity sets the fixed number of deferred frees a
// single thread may accumulate before its next commit. Default 32.
func WithFreeListCapacity(n int) Option {
	return func(c *config) { c.freeListCapacity = n }
}

// WithLogger attaches a zap.Logger for diagnostic output (thread
// registration, write-lock contention, capacity exhaustion). A nil
// logger is ignored; without this option the runtime logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithThreadLabeler assigns each ThreadContext a short uuid label
// (ThreadContext.Label) for correlating log lines across goroutines.
// Off by default since it allocates on every Thread() call.
func WithThreadLabeler() Option {
	return func(c *config) { c.labelThreads = true }
}
