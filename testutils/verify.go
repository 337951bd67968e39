// Package testutils provides helpers shared by the test suites of this module.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the package's tests and then fails if any goroutine is still running.
// Nothing in the estimation pipeline starts goroutines, so no functions are ignored.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m)
}
