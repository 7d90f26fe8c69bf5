package runtime

import "context"

// ParameterDetail describes one parameter of a registered function.
type ParameterDetail struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// FunctionDefinition is the flat function format the agent runtime registers.
type FunctionDefinition struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Parameters  map[string]ParameterDetail `json:"parameters"`
}

// ActionGroup is a named collection of functions available for
// return-of-control during a turn.
type ActionGroup struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Functions   []FunctionDefinition `json:"functions"`
}

// FunctionResult echoes a completed function call back to the runtime.
// ActionGroup and Function must match the originating return-control event
// exactly or the runtime rejects the resumption.
type FunctionResult struct {
	ActionGroup string `json:"actionGroup"`
	Function    string `json:"function"`
	Body        string `json:"body"`
}

// SessionState resumes a session after a return-control interruption.
type SessionState struct {
	InvocationID string           `json:"invocationId"`
	Results      []FunctionResult `json:"returnControlResults"`
}

// InvokeRequest starts or resumes one conversational turn.
type InvokeRequest struct {
	AgentID      string        `json:"agentId"`
	AliasID      string        `json:"agentAliasId"`
	SessionID    string        `json:"sessionId"`
	InputText    string        `json:"inputText,omitempty"`
	SessionState *SessionState `json:"sessionState,omitempty"`
	EnableTrace  bool          `json:"enableTrace"`
	EndSession   bool          `json:"endSession"`
}

// Runtime is the remote managed-agent capability consumed by the bridge.
type Runtime interface {
	// RegisterFunctions installs an action group on the agent before any turn.
	RegisterFunctions(ctx context.Context, group ActionGroup) error

	// Invoke submits a turn (or a resumption) and returns its push-event stream.
	Invoke(ctx context.Context, req InvokeRequest) (EventStream, error)
}
