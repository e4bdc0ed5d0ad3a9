package lifecycle

import "testprobe/internal/probetypes"

// InitializeResponse replies to the first message a controller receives.
type InitializeResponse struct {
	TestID probetypes.TestID
	Err    error
}

// StartResponse replies to a Start request.
type StartResponse struct {
	Accepted bool
	Err      error
}

// CancelResponse replies to a Cancel request; Reason is set whenever
// Cancelled is false.
type CancelResponse struct {
	Cancelled bool
	Reason    string
}

// StatusResponse replies to a GetStatus request.
type StatusResponse struct {
	State     State
	TestID    probetypes.TestID
	LastError error
}

// external request messages, always carrying a reply channel.
type initializeMsg struct {
	replyTo chan InitializeResponse
}

type startMsg struct {
	bucket   string
	testType string
	replyTo  chan StartResponse
}

type startTestingMsg struct{}

type cancelMsg struct {
	replyTo chan CancelResponse
}

type getStatusMsg struct {
	replyTo chan StatusResponse
}

// child-originated event messages.
type storageFetchedMsg struct {
	directive probetypes.StorageDirective
}

type securityFetchedMsg struct {
	directive probetypes.SecurityDirective
}

type childReadyMsg struct {
	child string
}

type testCompleteMsg struct {
	result probetypes.TestResult
}

type uploadCompleteMsg struct{}

type exceptionMsg struct {
	child string
	err   error
}

// self-addressed continuation messages (spec.md §4.1 "self-message
// continuation discipline"): the external handler always switches the
// declared next state before enqueueing exactly one of these.
type trnLoading struct{}
type trnLoaded struct{}
type trnTesting struct{}
type trnCompleted struct{}
type trnException struct{ err error }
type trnShuttingDown struct{}
