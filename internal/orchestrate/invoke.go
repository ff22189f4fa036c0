package orchestrate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var errNoThread = errors.New("run accepted but no thread id returned")

// ThreadAPI is the transport surface the orchestrator needs. *Client
// satisfies it; tests substitute stubs.
type ThreadAPI interface {
	SubmitRun(ctx context.Context, run RunRequest) (string, error)
	ThreadMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)
}

// PollPolicy bounds the poll loop. The bounds are fixed per invocation kind,
// not caller-configurable; tests inject smaller ones for determinism.
type PollPolicy struct {
	Attempts int
	Delay    time.Duration
}

// ToolPollPolicy bounds tool invocations: 12 attempts, 4s apart.
var ToolPollPolicy = PollPolicy{Attempts: 12, Delay: 4 * time.Second}

// AgentPollPolicy bounds agent chat: 15 attempts, 2s apart.
var AgentPollPolicy = PollPolicy{Attempts: 15, Delay: 2 * time.Second}

// State is the terminal state of a remote invocation.
type State string

const (
	// StateSucceeded means an assistant message was found and extracted.
	StateSucceeded State = "succeeded"
	// StateFailed means the submit phase did not produce a thread.
	StateFailed State = "failed"
	// StateTimedOut means the poll budget ran out before an assistant
	// message appeared.
	StateTimedOut State = "timed_out"
)

// Result is the outcome of a remote invocation. On timeout, Raw carries the
// accumulated message list as a degraded result; callers treat it as a soft
// failure, never a crash.
type Result struct {
	State     State
	ThreadID  string
	Output    any
	Reasoning string
	Raw       []ThreadMessage
	Attempts  int
}

// Orchestrator drives the two-phase submit/poll exchange against the
// conversational execution surface of the remote service.
type Orchestrator struct {
	api   ThreadAPI
	sleep func(context.Context, time.Duration) error
	log   zerolog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSleeper substitutes the inter-poll delay, letting tests run the loop
// without wall-clock waits.
func WithSleeper(sleep func(context.Context, time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithOrchestratorLogger attaches a logger.
func WithOrchestratorLogger(log zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator builds an orchestrator over the given transport.
func NewOrchestrator(api ThreadAPI, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:   api,
		sleep: sleepCtx,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InvokeTool executes a tool remotely. The execution surface is
// conversational, so the structured call is wrapped in a natural-language
// directive and the thread is polled for the assistant's reply.
func (o *Orchestrator) InvokeTool(ctx context.Context, toolID string, params map[string]any, verbose bool) (*Result, error) {
	run := RunRequest{
		ToolID:     toolID,
		Parameters: params,
		Message:    toolDirective(params),
	}
	return o.execute(ctx, run, ToolPollPolicy, verbose)
}

// ChatAgent sends one message to an agent and waits for its reply.
func (o *Orchestrator) ChatAgent(ctx context.Context, agentID, message string, verbose bool) (*Result, error) {
	run := RunRequest{AgentID: agentID, Message: message}
	return o.execute(ctx, run, AgentPollPolicy, verbose)
}

// toolDirective synthesizes the natural-language instruction carried by a
// tool run.
func toolDirective(params map[string]any) string {
	if len(params) == 0 {
		return "Execute the tool with its default parameters and return the raw result."
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "Execute the tool with its default parameters and return the raw result."
	}
	return "Execute the tool with these parameters and return the raw result. Parameters: " + string(encoded)
}

// execute runs the Submitting → Polling → terminal state machine.
func (o *Orchestrator) execute(ctx context.Context, run RunRequest, policy PollPolicy, verbose bool) (*Result, error) {
	threadID, err := o.api.SubmitRun(ctx, run)
	if err != nil {
		return &Result{State: StateFailed}, err
	}
	if threadID == "" {
		return &Result{State: StateFailed}, errNoThread
	}

	res := &Result{ThreadID: threadID}
	var lastMessages []ThreadMessage
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		// Each poll attempt is preceded by the fixed delay; the run needs
		// time to produce anything at all.
		if err := o.sleep(ctx, policy.Delay); err != nil {
			return res, err
		}
		res.Attempts = attempt

		messages, err := o.api.ThreadMessages(ctx, threadID)
		if err != nil {
			// Transport hiccups mid-loop mean "no new message yet".
			o.log.Debug().Err(err).Int("attempt", attempt).Msg("poll failed, retrying")
			continue
		}
		lastMessages = messages

		if msg, ok := firstAssistant(messages); ok {
			res.State = StateSucceeded
			res.Output = ExtractResult(msg)
			res.Reasoning = RenderReasoning(msg, verbose)
			res.Raw = messages
			return res, nil
		}
	}

	res.State = StateTimedOut
	res.Raw = lastMessages
	return res, nil
}

func firstAssistant(messages []ThreadMessage) (ThreadMessage, bool) {
	for _, m := range messages {
		if m.Role == "assistant" {
			return m, true
		}
	}
	return ThreadMessage{}, false
}
