// Package turn drives one conversational turn against the agent runtime:
// submit the query, consume the event stream, service at most one
// return-of-control interruption, and yield the final textual answer.
//
// Invariants:
// - A turn has exactly zero or one return-control interruption.
// - The resumption echoes invocationId, actionGroup and function unchanged
//   under the same session id.
// - Nothing is retried; a failed call or resumption surfaces as an error.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/rocbridge/rocbridge/pkg/runtime"
)

// State names a position in the turn state machine.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingFirstResponse State = "awaiting_first_response"
	StateReturnControlPending  State = "return_control_pending"
	StateAwaitingResumeResp    State = "awaiting_resume_response"
	StateCompleted             State = "completed"
)

// AnswerMode selects how chunk events accumulate into the turn's answer.
type AnswerMode string

const (
	// AnswerLastChunk keeps only the most recent chunk, the reference
	// behavior for runtimes that emit a single terminal chunk per turn.
	AnswerLastChunk AnswerMode = "last"

	// AnswerConcat appends every chunk fragment in order.
	AnswerConcat AnswerMode = "concat"
)

// ToolInvoker services a return-control request with a textual result.
type ToolInvoker interface {
	Invoke(ctx context.Context, req runtime.ReturnControl) (string, error)
}

// Controller runs turns for one agent.
type Controller struct {
	runtime    runtime.Runtime
	invoker    ToolInvoker
	agentID    string
	aliasID    string
	answerMode AnswerMode
	logger     zerolog.Logger
}

// Config holds controller construction parameters.
type Config struct {
	Runtime    runtime.Runtime
	Invoker    ToolInvoker
	AgentID    string
	AliasID    string
	AnswerMode AnswerMode
	Logger     zerolog.Logger
}

// New creates a turn controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("runtime is required")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("tool invoker is required")
	}
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	if cfg.AliasID == "" {
		return nil, fmt.Errorf("agent alias id is required")
	}

	mode := cfg.AnswerMode
	if mode == "" {
		mode = AnswerLastChunk
	}
	if mode != AnswerLastChunk && mode != AnswerConcat {
		return nil, fmt.Errorf("unknown answer mode %q", mode)
	}

	return &Controller{
		runtime:    cfg.Runtime,
		invoker:    cfg.Invoker,
		agentID:    cfg.AgentID,
		aliasID:    cfg.AliasID,
		answerMode: mode,
		logger:     cfg.Logger,
	}, nil
}

// streamOutcome is what one phase of stream consumption produced.
type streamOutcome struct {
	answer        string
	returnControl *runtime.ReturnControl
}

// RunTurn executes one query-to-answer cycle under the given session.
func (c *Controller) RunTurn(ctx context.Context, session *SessionContext, query string) (string, error) {
	turnID, err := gonanoid.New(8)
	if err != nil {
		turnID = "turn"
	}
	logger := c.logger.With().Str("turn", turnID).Str("sessionId", session.SessionID).Logger()

	state := StateIdle
	transition := func(next State) {
		logger.Debug().Str("from", string(state)).Str("to", string(next)).Msg("Turn state")
		state = next
	}

	transition(StateAwaitingFirstResponse)
	stream, err := c.runtime.Invoke(ctx, runtime.InvokeRequest{
		AgentID:     c.agentID,
		AliasID:     c.aliasID,
		SessionID:   session.SessionID,
		InputText:   query,
		EnableTrace: session.TraceEnabled,
		EndSession:  false,
	})
	if err != nil {
		return "", &TransportError{Op: "invoke agent", Err: err}
	}

	outcome, err := c.consumeStream(stream, logger, true)
	if err != nil {
		return "", err
	}

	if outcome.returnControl == nil {
		transition(StateCompleted)
		return outcome.answer, nil
	}

	transition(StateReturnControlPending)
	rc := outcome.returnControl
	session.InvocationID = rc.InvocationID
	logger.Info().
		Str("function", rc.Function).
		Str("invocationId", rc.InvocationID).
		Msg("Return of control")

	resultText, err := c.invoker.Invoke(ctx, *rc)
	if err != nil {
		return "", err
	}

	transition(StateAwaitingResumeResp)
	resumeStream, err := c.runtime.Invoke(ctx, runtime.InvokeRequest{
		AgentID:     c.agentID,
		AliasID:     c.aliasID,
		SessionID:   session.SessionID,
		EnableTrace: session.TraceEnabled,
		EndSession:  false,
		SessionState: &runtime.SessionState{
			InvocationID: rc.InvocationID,
			Results: []runtime.FunctionResult{
				{
					ActionGroup: rc.ActionGroup,
					Function:    rc.Function,
					Body:        resultText,
				},
			},
		},
	})
	if err != nil {
		return "", &TransportError{Op: "resume agent", Err: err}
	}

	outcome, err = c.consumeStream(resumeStream, logger, false)
	if err != nil {
		return "", err
	}

	transition(StateCompleted)
	return outcome.answer, nil
}

// consumeStream reads events sequentially until end of stream or a
// return-control event. A return-control terminates consumption
// immediately; no further events are read even if more are pending.
func (c *Controller) consumeStream(stream runtime.EventStream, logger zerolog.Logger, allowReturnControl bool) (streamOutcome, error) {
	defer stream.Close()

	var outcome streamOutcome
	for {
		event, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return outcome, nil
		}
		if err != nil {
			return streamOutcome{}, &TransportError{Op: "read event stream", Err: err}
		}

		switch {
		case event.Chunk != nil:
			if c.answerMode == AnswerConcat {
				outcome.answer += event.Chunk.Text
			} else {
				outcome.answer = event.Chunk.Text
			}

		case event.Trace != nil:
			logger.Debug().RawJSON("trace", event.Trace.Payload).Msg("Agent trace")

		case event.ReturnControl != nil:
			if !allowReturnControl {
				return streamOutcome{}, &UnexpectedEventError{
					Reason: "second return-control within one turn",
					Raw:    event.Raw,
				}
			}
			outcome.returnControl = event.ReturnControl
			return outcome, nil

		default:
			return streamOutcome{}, &UnexpectedEventError{
				Reason: "unrecognized event shape",
				Raw:    event.Raw,
			}
		}
	}
}
