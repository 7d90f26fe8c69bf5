package toolserver

import (
	"context"
	"encoding/json"
)

// ToolSpec describes one tool exposed by the tool server. InputSchema is the
// raw JSON Schema for the tool's arguments, kept verbatim so the translation
// layer owns its interpretation.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ContentBlock is one segment of a tool call result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the payload returned by a tool call.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// FirstText returns the text of the first non-empty text content block.
func (r ToolResult) FirstText() (string, bool) {
	for _, block := range r.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, true
		}
	}
	return "", false
}

// Caller is the call-side capability of a tool server. Components that only
// invoke tools depend on this rather than on the concrete client.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (ToolResult, error)
}

// Lister is the discovery-side capability of a tool server.
type Lister interface {
	ListTools(ctx context.Context) ([]ToolSpec, error)
}
