//go:build spacewar_debug

package game

import "fmt"

// debugAsserts is on: logic defects panic immediately.
const debugAsserts = true

func assertThat(cond bool, msg string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("invariant violation: %s %v", msg, args))
	}
}
