// Package kassert provides the kernel's internal consistency checks.
//
// The scheduler never recovers from scheduler-internal inconsistency: it
// panics. Assert/Panic are the kernel-core equivalent of pw_assert's
// assert!/panic! macros, kept as a single narrow package so every call site
// that can legitimately crash the kernel is easy to find and audit.
package kassert

import "fmt"

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("kernel assertion failed: " + fmt.Sprintf(format, args...))
	}
}

// Panic unconditionally panics with a formatted kernel-fault message.
func Panic(format string, args ...any) {
	panic("kernel panic: " + fmt.Sprintf(format, args...))
}
