// Package orchestrate talks to the remote orchestration service: tool/agent
// CRUD, connection and catalog listings, and the asynchronous run/thread
// execution protocol.
package orchestrate

import (
	"encoding/json"
)

// Agent is a configured LLM-backed actor with an instruction prompt, model
// id, and an assigned set of tools.
type Agent struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	DisplayName  string   `json:"display_name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Model        string   `json:"llm,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// AgentUpdate is the restricted payload the service accepts on agent update
// calls.
type AgentUpdate struct {
	DisplayName  string   `json:"display_name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// ToolUpdate is the restricted payload the service accepts on tool update
// calls. Binding, schemas, and paths are immutable after creation.
type ToolUpdate struct {
	Name         string          `json:"name,omitempty"`
	DisplayName  string          `json:"display_name,omitempty"`
	Description  string          `json:"description,omitempty"`
	Permission   string          `json:"permission,omitempty"`
	Restrictions json.RawMessage `json:"restrictions,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
}

// RunRequest submits a tool or agent execution. Exactly one of ToolID or
// AgentID is set.
type RunRequest struct {
	ToolID     string         `json:"tool_id,omitempty"`
	AgentID    string         `json:"agent_id,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Message    string         `json:"message"`
}

// RunResponse is the submit acknowledgement.
type RunResponse struct {
	ThreadID string `json:"thread_id"`
}

// ThreadMessage is one entry in a run thread. The thread is an append-only
// log this toolkit polls and never mutates.
type ThreadMessage struct {
	Role    string      `json:"role"`
	Content ContentList `json:"content"`
}

// ContentBlock is one typed block of assistant message content.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	Content any `json:"content,omitempty"`
	Output  any `json:"output,omitempty"`
	Result  any `json:"result,omitempty"`
}

// ContentList tolerates both wire encodings of message content: a plain
// string or an array of typed blocks.
type ContentList []ContentBlock

// UnmarshalJSON accepts a bare string as a single text block.
func (c *ContentList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ContentList{{Type: "text", Text: s}}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = ContentList(blocks)
	return nil
}

// CatalogEntry is one connector application in the service catalog.
type CatalogEntry struct {
	AppID       string `json:"app_id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}
