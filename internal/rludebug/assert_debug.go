//go:build rludebug

package rludebug

import "fmt"

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("rlu: assertion failed: " + fmt.Sprintf(format, args...))
	}
}

// Enabled reports whether debug assertions are compiled in.
func Enabled() bool { return true }
