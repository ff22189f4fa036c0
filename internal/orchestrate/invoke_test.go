package orchestrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubThreadAPI struct {
	threadID  string
	submitErr error
	messages  func(attempt int) ([]ThreadMessage, error)
	polls     int
}

func (s *stubThreadAPI) SubmitRun(context.Context, RunRequest) (string, error) {
	return s.threadID, s.submitErr
}

func (s *stubThreadAPI) ThreadMessages(context.Context, string) ([]ThreadMessage, error) {
	s.polls++
	return s.messages(s.polls)
}

func noSleep(context.Context, time.Duration) error { return nil }

func assistantText(text string) ThreadMessage {
	return ThreadMessage{Role: "assistant", Content: ContentList{{Type: "text", Text: text}}}
}

func TestInvokeToolStopsAtFirstAssistantMessage(t *testing.T) {
	t.Parallel()
	api := &stubThreadAPI{threadID: "th-1", messages: func(attempt int) ([]ThreadMessage, error) {
		if attempt < 3 {
			return []ThreadMessage{{Role: "user"}}, nil
		}
		return []ThreadMessage{{Role: "user"}, assistantText("42 degrees")}, nil
	}}

	o := NewOrchestrator(api, WithSleeper(noSleep))
	res, err := o.InvokeTool(context.Background(), "tool-1", map[string]any{"q": "Toronto"}, false)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, "th-1", res.ThreadID)
	assert.Equal(t, "42 degrees", res.Output)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, api.polls)
}

func TestInvokeToolPollsExactlyTwelveTimesThenDegrades(t *testing.T) {
	t.Parallel()
	api := &stubThreadAPI{threadID: "th-1", messages: func(int) ([]ThreadMessage, error) {
		return []ThreadMessage{{Role: "user"}}, nil
	}}

	var delays []time.Duration
	o := NewOrchestrator(api, WithSleeper(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))
	res, err := o.InvokeTool(context.Background(), "tool-1", nil, false)

	require.NoError(t, err, "timeout is a degraded result, not an error")
	assert.Equal(t, StateTimedOut, res.State)
	assert.Equal(t, 12, api.polls)
	assert.Equal(t, 12, res.Attempts)
	require.Len(t, delays, 12)
	for _, d := range delays {
		assert.Equal(t, 4*time.Second, d)
	}
	assert.Equal(t, []ThreadMessage{{Role: "user"}}, res.Raw)
}

func TestChatAgentUsesAgentPolicy(t *testing.T) {
	t.Parallel()
	api := &stubThreadAPI{threadID: "th-2", messages: func(int) ([]ThreadMessage, error) {
		return nil, nil
	}}

	var delays []time.Duration
	o := NewOrchestrator(api, WithSleeper(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))
	res, err := o.ChatAgent(context.Background(), "agent-1", "hello", false)

	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, res.State)
	assert.Equal(t, 15, api.polls)
	require.NotEmpty(t, delays)
	assert.Equal(t, 2*time.Second, delays[0])
}

func TestPollTransportErrorsAreTolerated(t *testing.T) {
	t.Parallel()
	api := &stubThreadAPI{threadID: "th-3", messages: func(attempt int) ([]ThreadMessage, error) {
		if attempt < 5 {
			return nil, errors.New("connection reset")
		}
		return []ThreadMessage{assistantText("ok")}, nil
	}}

	o := NewOrchestrator(api, WithSleeper(noSleep))
	res, err := o.InvokeTool(context.Background(), "tool-1", nil, false)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 5, res.Attempts)
}

func TestSubmitFailureIsTerminal(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	api := &stubThreadAPI{submitErr: boom}

	o := NewOrchestrator(api, WithSleeper(noSleep))
	res, err := o.InvokeTool(context.Background(), "tool-1", nil, false)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, res.State)
	assert.Zero(t, api.polls)
}

func TestEmptyThreadIDIsTerminal(t *testing.T) {
	t.Parallel()
	api := &stubThreadAPI{threadID: ""}
	o := NewOrchestrator(api, WithSleeper(noSleep))
	res, err := o.InvokeTool(context.Background(), "tool-1", nil, false)
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
}

func TestContextCancellationStopsPolling(t *testing.T) {
	t.Parallel()
	api := &stubThreadAPI{threadID: "th-4", messages: func(int) ([]ThreadMessage, error) {
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator(api, WithSleeper(func(ctx context.Context, _ time.Duration) error {
		if api.polls >= 2 {
			cancel()
		}
		return ctx.Err()
	}))
	_, err := o.InvokeTool(ctx, "tool-1", nil, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, api.polls)
}

func TestToolDirective(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"Execute the tool with its default parameters and return the raw result.",
		toolDirective(nil))
	got := toolDirective(map[string]any{"q": "Toronto"})
	assert.Contains(t, got, "Execute the tool with these parameters")
	assert.Contains(t, got, `{"q":"Toronto"}`)
}
