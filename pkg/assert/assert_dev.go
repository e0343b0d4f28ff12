//go:build !release

// Package assert checks invariants in development builds. Release builds compile the checks away,
// so conditions must be free of side effects.
package assert

import "fmt"

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

// Unreachable panics; place it in switch arms that validated input never reaches.
func Unreachable(what string) {
	panic("assertion failed: unreachable " + what)
}
