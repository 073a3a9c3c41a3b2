package rlu

import "errors"

// ErrTooManyThreads is returned by Runtime.Thread once the runtime's
// fixed thread capacity (see WithMaxThreads) has been exhausted.
var ErrTooManyThreads = errors.New("rlu: thread capacity exhausted")
