package turn

import "github.com/google/uuid"

// SessionContext carries the identity one conversation shares across turns.
// It is exclusively owned by the in-flight turn; nothing else mutates it.
type SessionContext struct {
	// SessionID is allocated once per conversation and reused across the
	// initial call and any resumption calls.
	SessionID string

	// InvocationID is the token issued by the most recent return-control
	// event, empty until a turn is interrupted.
	InvocationID string

	// TraceEnabled asks the runtime to emit trace events.
	TraceEnabled bool
}

// NewSessionContext allocates a fresh session identity.
func NewSessionContext(traceEnabled bool) *SessionContext {
	return &SessionContext{
		SessionID:    uuid.NewString(),
		TraceEnabled: traceEnabled,
	}
}
