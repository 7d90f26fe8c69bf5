// Package chat runs the interactive session loop: one session identity per
// loop, one turn per query, turn failures reported and survived.
//
// Invariants:
// - Exactly one session context per Run; its id is stable across queries.
// - Turn-phase errors never terminate the loop.
// - The tool server handle is released exactly once on every exit path.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rocbridge/rocbridge/pkg/invoker"
	"github.com/rocbridge/rocbridge/pkg/schema"
	"github.com/rocbridge/rocbridge/pkg/turn"
)

const exitSentinel = "quit"

// TurnRunner executes one query-to-answer cycle.
type TurnRunner interface {
	RunTurn(ctx context.Context, session *turn.SessionContext, query string) (string, error)
}

// Loop reads queries from an input source and answers them through a turn
// runner under one long-lived session.
type Loop struct {
	controller   TurnRunner
	closer       io.Closer
	traceEnabled bool
	logger       zerolog.Logger

	closeOnce sync.Once
}

// Config holds loop construction parameters.
type Config struct {
	Controller TurnRunner

	// Closer is the scoped tool-server handle this loop guarantees to
	// release; may be nil when ownership stays with the caller.
	Closer io.Closer

	TraceEnabled bool
	Logger       zerolog.Logger
}

// New creates a session loop.
func New(cfg Config) (*Loop, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("turn controller is required")
	}

	return &Loop{
		controller:   cfg.Controller,
		closer:       cfg.Closer,
		traceEnabled: cfg.TraceEnabled,
		logger:       cfg.Logger,
	}, nil
}

// Run processes queries until the exit sentinel, input EOF or a context
// cancellation. Turn errors are reported to out and the loop continues.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer l.release()

	session := turn.NewSessionContext(l.traceEnabled)
	l.logger.Info().Str("sessionId", session.SessionID).Msg("Session started")

	fmt.Fprintf(out, "rocbridge ready. Type your queries or %q to exit.\n", exitSentinel)

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, "\nQuery: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, exitSentinel) {
			break
		}

		answer, err := l.controller.RunTurn(ctx, session, query)
		if err != nil {
			l.logger.Error().Err(err).Str("sessionId", session.SessionID).Msg("Turn failed")
			fmt.Fprintf(out, "\nError (%s): %v\n", errorKind(err), err)
			continue
		}

		fmt.Fprintf(out, "\nResponse:\n%s\n", answer)
	}

	l.logger.Info().Str("sessionId", session.SessionID).Msg("Session ended")
	return scanner.Err()
}

func (l *Loop) release() {
	l.closeOnce.Do(func() {
		if l.closer == nil {
			return
		}
		if err := l.closer.Close(); err != nil {
			l.logger.Warn().Err(err).Msg("Tool server close failed")
		}
	})
}

// errorKind labels an error by its place in the taxonomy so the report to
// the user carries the kind alongside the message.
func errorKind(err error) string {
	var schemaErr *schema.SchemaError
	var argErr *invoker.ArgumentError
	var resultErr *invoker.ResultFormatError
	var eventErr *turn.UnexpectedEventError
	var transportErr *turn.TransportError

	switch {
	case errors.Is(err, invoker.ErrToolNotFound):
		return "tool not found"
	case errors.As(err, &schemaErr):
		return "schema error"
	case errors.As(err, &argErr):
		return "argument error"
	case errors.As(err, &resultErr):
		return "result format error"
	case errors.As(err, &eventErr):
		return "unexpected event"
	case errors.As(err, &transportErr):
		return "transport error"
	default:
		return "error"
	}
}
