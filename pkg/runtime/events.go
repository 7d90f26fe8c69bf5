package runtime

import "encoding/json"

// Parameter is one name/value pair from a return-control event. The wire
// format is an ordered list, not a mapping; a name may repeat on the wire.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReturnControl is the runtime's mid-turn function call request.
type ReturnControl struct {
	InvocationID string      `json:"invocationId"`
	ActionGroup  string      `json:"actionGroup"`
	Function     string      `json:"function"`
	Parameters   []Parameter `json:"parameters"`
}

// Chunk carries a fragment of the turn's textual answer.
type Chunk struct {
	Text string `json:"text"`
}

// Trace is a diagnostic payload. It never affects control flow.
type Trace struct {
	Payload json.RawMessage `json:"payload"`
}

// Event is one push event from the runtime stream. Exactly one of Chunk,
// Trace and ReturnControl is set for a recognized event; an event with none
// set is outside the protocol and Raw holds its bytes for diagnostics.
type Event struct {
	Chunk         *Chunk
	Trace         *Trace
	ReturnControl *ReturnControl
	Raw           json.RawMessage
}

// EventStream is a pull iterator over the runtime's push events. Next
// returns io.EOF once the stream is exhausted.
type EventStream interface {
	Next() (Event, error)
	Close() error
}
