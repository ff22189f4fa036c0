package orchestrate

import (
	"encoding/json"
	"strings"
)

// ExtractResult pulls the most useful payload out of an assistant message.
// Preference order: a tool_result block's content, output, or result field;
// then plain text; then a tool_use block's input; then the raw block list.
func ExtractResult(msg ThreadMessage) any {
	for _, b := range msg.Content {
		if b.Type != "tool_result" {
			continue
		}
		if b.Content != nil {
			return b.Content
		}
		if b.Output != nil {
			return b.Output
		}
		if b.Result != nil {
			return b.Result
		}
	}
	for _, b := range msg.Content {
		if b.Type == "text" && b.Text != "" {
			return b.Text
		}
	}
	for _, b := range msg.Content {
		if b.Type == "tool_use" {
			return b.Input
		}
	}
	return []ContentBlock(msg.Content)
}

// RenderReasoning flattens an assistant message into a readable trace. Text
// blocks appear verbatim; tool_use blocks show the tool name and its input;
// tool_result blocks are collapsed to a placeholder unless verbose is set.
func RenderReasoning(msg ThreadMessage, verbose bool) string {
	var parts []string
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		case "tool_use":
			line := "Tool: " + b.Name
			if b.Input != nil {
				if data, err := json.Marshal(b.Input); err == nil {
					line += "\nInput: " + string(data)
				}
			}
			parts = append(parts, line)
		case "tool_result":
			if !verbose {
				parts = append(parts, "[tool result omitted]")
				continue
			}
			payload := b.Content
			if payload == nil {
				payload = b.Output
			}
			if payload == nil {
				payload = b.Result
			}
			if data, err := json.Marshal(payload); err == nil {
				parts = append(parts, "Result: "+string(data))
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
