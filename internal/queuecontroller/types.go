// Package queuecontroller implements the probe's external front door
// (spec.md §4.2): it mints test IDs, spawns one lifecycle controller per
// test, watches each for death, and dispatches every request through a
// per-test circuit breaker.
package queuecontroller

import (
	"testprobe/internal/lifecycle"
	"testprobe/internal/probetypes"
)

// InitializeTestResponse replies to InitializeTest with the freshly
// minted test identifier.
type InitializeTestResponse struct {
	TestID probetypes.TestID
}

// TestStatus is the last-observed state of one test, as reported by its
// lifecycle controller's queue notifications.
type TestStatus struct {
	TestID    probetypes.TestID
	State     lifecycle.State
	TestType  string
	Bucket    string
	LastError error
}

// QueueStatus is the aggregate view over every test the queue controller
// still knows about (spec.md §4.2 "QueueStatus(testId?)").
type QueueStatus struct {
	Tests []TestStatus
}
