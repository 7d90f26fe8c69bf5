package turn

import (
	"encoding/json"
	"fmt"
)

// UnexpectedEventError reports a stream event outside the recognized set,
// or a second return-control within one turn. Raw holds the offending
// event's bytes for diagnostics.
type UnexpectedEventError struct {
	Reason string
	Raw    json.RawMessage
}

func (e *UnexpectedEventError) Error() string {
	if len(e.Raw) > 0 {
		return fmt.Sprintf("unexpected event: %s: %s", e.Reason, string(e.Raw))
	}
	return fmt.Sprintf("unexpected event: %s", e.Reason)
}

// TransportError wraps a failure of an underlying call or stream read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
