//go:build !spacewar_debug

package game

// debugAsserts is off in normal builds; build with -tags spacewar_debug to
// turn invariant checks into panics.
const debugAsserts = false

func assertThat(bool, string, ...any) {}
