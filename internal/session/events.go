// Package session mediates between an editor surface and the tool services:
// it owns open documents, routes editor commands, and pushes typed events
// back to the surface.
package session

import (
	"context"

	"github.com/wxo-labs/studio/internal/orchestrate"
	"github.com/wxo-labs/studio/internal/tool"
)

// EventType names the event channels the editor surface subscribes to.
type EventType string

const (
	// EventValidationResult carries a tool.ValidationResult.
	EventValidationResult EventType = "validationResult"
	// EventTestResult carries a LocalTestPayload.
	EventTestResult EventType = "testResult"
	// EventTestRemoteResult carries a RemoteTestPayload.
	EventTestRemoteResult EventType = "testRemoteResult"
	// EventUpdateJSON carries the re-rendered document text after the
	// controller changed it.
	EventUpdateJSON EventType = "updateJson"
	// EventChatResponse carries a RemoteTestPayload from an agent chat.
	EventChatResponse EventType = "chatResponse"
	// EventError carries an ErrorPayload.
	EventError EventType = "error"
)

// Event is one message pushed to the editor surface.
type Event struct {
	Type      EventType
	SessionID string
	Payload   any
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink func(Event)

// LocalTestPayload is the outcome of a local endpoint test.
type LocalTestPayload struct {
	Status int
	Body   string
	Curl   string
}

// RemoteTestPayload is the outcome of a remote invocation or chat.
type RemoteTestPayload struct {
	State     orchestrate.State
	Output    any
	Reasoning string
	Attempts  int
}

// ErrorPayload reports a failed command.
type ErrorPayload struct {
	Op      string
	Message string
}

// FileDialog asks the user for file paths. An empty path with a nil error
// means the user cancelled.
type FileDialog interface {
	PickOpenPath(ctx context.Context) (string, error)
	PickSavePath(ctx context.Context, suggested string) (string, error)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// DiffViewer shows a before/after comparison of document text.
type DiffViewer interface {
	ShowDiff(ctx context.Context, title string, before, after []byte) error
}

// RemoteAPI is the subset of the service client the controller needs for
// persistence.
type RemoteAPI interface {
	CreateTool(ctx context.Context, b *tool.Bound) (*tool.Bound, error)
	UpdateTool(ctx context.Context, id string, payload orchestrate.ToolUpdate) error
	DeleteTool(ctx context.Context, id string) error
}

// Invoker runs tools and agents remotely.
type Invoker interface {
	InvokeTool(ctx context.Context, toolID string, params map[string]any, verbose bool) (*orchestrate.Result, error)
	ChatAgent(ctx context.Context, agentID, message string, verbose bool) (*orchestrate.Result, error)
}
