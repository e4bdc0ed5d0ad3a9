// Package lifecycle implements the per-test lifecycle controller
// (spec.md §4.1): a seven-state finite-state machine that owns one test's
// life from acceptance through cleanup, driving storage fetch, credential
// resolution, the Kafka producer/consumer supervisors and the Gherkin
// executor bridge as supervised children.
package lifecycle

import "testprobe/internal/probetypes"

// State names one of the controller's seven states.
type State string

const (
	StateSetup        State = "Setup"
	StateLoading      State = "Loading"
	StateLoaded       State = "Loaded"
	StateTesting      State = "Testing"
	StateCompleted    State = "Completed"
	StateException    State = "Exception"
	StateShuttingDown State = "ShuttingDown"
)

// childCount is the number of asynchronous child subsystems the
// controller spawns at Loading entry: storage, vault, Gherkin executor,
// producer supervisor, consumer supervisor (spec.md §1, §4.1).
const childCount = 5

// Data is the controller's mutable lifecycle state, touched only from the
// mailbox goroutine.
type Data struct {
	TestID             probetypes.TestID
	Bucket             string
	TestType           string
	StorageDirective   probetypes.StorageDirective
	SecurityDirectives map[string]probetypes.SecurityDirective
	Result             probetypes.TestResult
	LastError          error
	childrenReady      map[string]bool
}

func newData(testID probetypes.TestID) *Data {
	return &Data{
		TestID:             testID,
		SecurityDirectives: map[string]probetypes.SecurityDirective{},
		childrenReady:      map[string]bool{},
	}
}

func (d *Data) markChildReady(child string) bool {
	d.childrenReady[child] = true
	return len(d.childrenReady) >= childCount
}

// QueueEvent is one of the observable notifications the controller sends
// to the queue controller (spec.md §4.1 "Observable side effects").
type QueueEvent string

const (
	EventTestInitialized QueueEvent = "TestInitialized"
	EventTestLoading     QueueEvent = "TestLoading"
	EventTestLoaded      QueueEvent = "TestLoaded"
	EventTestStarted     QueueEvent = "TestStarted"
	EventTestCompleted   QueueEvent = "TestCompleted"
	EventTestException   QueueEvent = "TestException"
	EventTestStopping    QueueEvent = "TestStopping"
)

// QueueNotifier receives one lifecycle event plus optional error detail.
type QueueNotifier func(testID probetypes.TestID, event QueueEvent, err error)
