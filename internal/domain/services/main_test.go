package services

import (
	"testing"

	"go.uber.org/goleak"
)

// The event bus keeps one ticker goroutine per event type for the life of
// the process.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/kelindar/event.(*group[...]).Process"))
}
