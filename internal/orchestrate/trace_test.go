package orchestrate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResultPrefersToolResultContent(t *testing.T) {
	t.Parallel()
	msg := ThreadMessage{Role: "assistant", Content: ContentList{
		{Type: "text", Text: "Here is the result:"},
		{Type: "tool_result", Content: map[string]any{"temp_c": 22.0}},
	}}
	got := ExtractResult(msg)
	assert.Equal(t, map[string]any{"temp_c": 22.0}, got)
}

func TestExtractResultFallsBackThroughFields(t *testing.T) {
	t.Parallel()
	msg := ThreadMessage{Content: ContentList{{Type: "tool_result", Output: "from-output"}}}
	assert.Equal(t, "from-output", ExtractResult(msg))

	msg = ThreadMessage{Content: ContentList{{Type: "tool_result", Result: "from-result"}}}
	assert.Equal(t, "from-result", ExtractResult(msg))

	msg = ThreadMessage{Content: ContentList{{Type: "text", Text: "just text"}}}
	assert.Equal(t, "just text", ExtractResult(msg))

	msg = ThreadMessage{Content: ContentList{{Type: "tool_use", Name: "t", Input: map[string]any{"q": "x"}}}}
	assert.Equal(t, map[string]any{"q": "x"}, ExtractResult(msg))

	msg = ThreadMessage{Content: ContentList{{Type: "mystery"}}}
	assert.Equal(t, []ContentBlock{{Type: "mystery"}}, ExtractResult(msg))
}

func TestRenderReasoning(t *testing.T) {
	t.Parallel()
	msg := ThreadMessage{Content: ContentList{
		{Type: "text", Text: "Let me check the weather."},
		{Type: "tool_use", Name: "get_weather", Input: map[string]any{"q": "Toronto"}},
		{Type: "tool_result", Content: map[string]any{"temp_c": 22.0}},
	}}

	terse := RenderReasoning(msg, false)
	assert.Contains(t, terse, "Let me check the weather.")
	assert.Contains(t, terse, "Tool: get_weather")
	assert.Contains(t, terse, `Input: {"q":"Toronto"}`)
	assert.Contains(t, terse, "[tool result omitted]")
	assert.NotContains(t, terse, "temp_c")

	verbose := RenderReasoning(msg, true)
	assert.Contains(t, verbose, `Result: {"temp_c":22}`)
	assert.NotContains(t, verbose, "[tool result omitted]")
}

func TestContentListDecodesStringAndBlocks(t *testing.T) {
	t.Parallel()
	var msg ThreadMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"hello"}`), &msg))
	require.Len(t, msg.Content, 1)
	assert.Equal(t, "text", msg.Content[0].Type)
	assert.Equal(t, "hello", msg.Content[0].Text)

	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":[{"type":"text","text":"hi"},{"type":"tool_use","name":"t"}]}`), &msg))
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "t", msg.Content[1].Name)
}
