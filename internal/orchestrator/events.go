package orchestrator

import "github.com/veritest-ai/veritest-be/pkg/veritest"

// Event types pushed during a streamed run. The orchestrator is
// transport-agnostic: SSE, WebSocket, or a test harness collecting events
// into a slice are equally valid consumers.
const (
	EventConnected = "connected"
	EventProgress  = "progress"
	EventResult    = "result"
	EventError     = "error"
	EventComplete  = "complete"
)

// Event is one progress notification from a running orchestration.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ConnectedPayload is emitted once, before any unit executes.
type ConnectedPayload struct {
	RunID string `json:"run_id"`
	Total int    `json:"total"`
}

// ProgressPayload is emitted after each completed unit.
type ProgressPayload struct {
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	TestCaseID string `json:"test_case_id"`
	Iteration  int    `json:"iteration,omitempty"`
}

// ErrorPayload is emitted for a case-level fault. It is non-fatal to the
// run.
type ErrorPayload struct {
	Message    string `json:"message"`
	TestCaseID string `json:"test_case_id,omitempty"`
}

// CompletePayload is the terminal event of a streamed run.
type CompletePayload struct {
	RunID   string            `json:"run_id"`
	Status  string            `json:"status"`
	TestRun *veritest.TestRun `json:"test_run"`
}

// Notify receives events during a run. A nil Notify disables emission.
type Notify func(Event)

func (n Notify) emit(eventType string, payload interface{}) {
	if n == nil {
		return
	}
	n(Event{Type: eventType, Payload: payload})
}
