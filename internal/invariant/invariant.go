// Package invariant provides small assertion helpers for preconditions,
// postconditions, and internal invariants. A failure here means a bug in
// this program, not bad input from a client or a misbehaving stage -
// panics are appropriate. A panic raised while serving a request is
// recovered at the request boundary in internal/server; one raised during
// startup (for example from scrub.New) is not recovered.
package invariant

import "fmt"

// NotNil panics if v is nil. name identifies the argument in the message.
func NotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("invariant: %s must not be nil", name))
	}
}

// Precondition panics with a formatted message when cond is false.
func Precondition(cond bool, format string, args ...any) {
	if !cond {
		panic("precondition failed: " + fmt.Sprintf(format, args...))
	}
}

// Postcondition panics with a formatted message when cond is false.
func Postcondition(cond bool, format string, args ...any) {
	if !cond {
		panic("postcondition failed: " + fmt.Sprintf(format, args...))
	}
}

// Invariant panics with a formatted message when cond is false.
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}
