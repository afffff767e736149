package engine

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain uses goleak to verify the Engine's tests never leak goroutines,
// matching the Step/Tick contract's promise of never blocking or spawning
// background work on its own.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
