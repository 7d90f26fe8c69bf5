package chat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocbridge/rocbridge/pkg/invoker"
	"github.com/rocbridge/rocbridge/pkg/turn"
)

// fakeRunner answers queries from a script and records what it saw.
type fakeRunner struct {
	answers  map[string]string
	failures map[string]error
	queries  []string
	sessions []string
}

func (f *fakeRunner) RunTurn(ctx context.Context, session *turn.SessionContext, query string) (string, error) {
	f.queries = append(f.queries, query)
	f.sessions = append(f.sessions, session.SessionID)
	if err, ok := f.failures[query]; ok {
		return "", err
	}
	return f.answers[query], nil
}

// countingCloser counts Close calls.
type countingCloser struct {
	closes int
	err    error
}

func (c *countingCloser) Close() error {
	c.closes++
	return c.err
}

func runLoop(t *testing.T, runner *fakeRunner, closer *countingCloser, input string) string {
	t.Helper()

	loop, err := New(Config{Controller: runner, Closer: closer})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	err = loop.Run(context.Background(), strings.NewReader(input), out)
	require.NoError(t, err)
	return out.String()
}

func TestNew(t *testing.T) {
	t.Run("should fail without a controller", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	t.Run("should answer queries until the exit sentinel", func(t *testing.T) {
		runner := &fakeRunner{answers: map[string]string{"weather?": "Sunny today."}}
		closer := &countingCloser{}

		output := runLoop(t, runner, closer, "weather?\nquit\n")

		assert.Equal(t, []string{"weather?"}, runner.queries)
		assert.Contains(t, output, "Sunny today.")
	})

	t.Run("should reuse one session id across queries", func(t *testing.T) {
		runner := &fakeRunner{answers: map[string]string{"a": "1", "b": "2"}}

		runLoop(t, runner, &countingCloser{}, "a\nb\nquit\n")

		require.Len(t, runner.sessions, 2)
		assert.Equal(t, runner.sessions[0], runner.sessions[1])
	})

	t.Run("should report a turn error and accept the next query", func(t *testing.T) {
		runner := &fakeRunner{
			answers:  map[string]string{"second": "recovered"},
			failures: map[string]error{"first": &turn.UnexpectedEventError{Reason: "unrecognized event shape"}},
		}

		output := runLoop(t, runner, &countingCloser{}, "first\nsecond\nquit\n")

		assert.Equal(t, []string{"first", "second"}, runner.queries)
		assert.Contains(t, output, "Error (unexpected event)")
		assert.Contains(t, output, "recovered")
	})

	t.Run("should label tool errors by kind", func(t *testing.T) {
		runner := &fakeRunner{failures: map[string]error{
			"q": fmt.Errorf("%w: get_weather", invoker.ErrToolNotFound),
		}}

		output := runLoop(t, runner, &countingCloser{}, "q\nquit\n")

		assert.Contains(t, output, "Error (tool not found)")
	})

	t.Run("should treat the sentinel case-insensitively", func(t *testing.T) {
		runner := &fakeRunner{}

		runLoop(t, runner, &countingCloser{}, "QUIT\n")

		assert.Empty(t, runner.queries)
	})

	t.Run("should skip empty input lines", func(t *testing.T) {
		runner := &fakeRunner{answers: map[string]string{"real": "yes"}}

		runLoop(t, runner, &countingCloser{}, "\n   \nreal\nquit\n")

		assert.Equal(t, []string{"real"}, runner.queries)
	})

	t.Run("should release the closer exactly once on sentinel exit", func(t *testing.T) {
		closer := &countingCloser{}

		runLoop(t, &fakeRunner{}, closer, "quit\n")

		assert.Equal(t, 1, closer.closes)
	})

	t.Run("should release the closer exactly once on input EOF", func(t *testing.T) {
		closer := &countingCloser{}

		runLoop(t, &fakeRunner{}, closer, "")

		assert.Equal(t, 1, closer.closes)
	})

	t.Run("should survive a closer failure", func(t *testing.T) {
		closer := &countingCloser{err: fmt.Errorf("already dead")}

		runLoop(t, &fakeRunner{}, closer, "quit\n")

		assert.Equal(t, 1, closer.closes)
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		loop, err := New(Config{Controller: &fakeRunner{}, Closer: &countingCloser{}})
		require.NoError(t, err)

		err = loop.Run(ctx, strings.NewReader("lost query\n"), &bytes.Buffer{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{"tool not found", fmt.Errorf("wrap: %w", invoker.ErrToolNotFound), "tool not found"},
		{"argument error", &invoker.ArgumentError{Function: "f", Reason: "r"}, "argument error"},
		{"result format error", &invoker.ResultFormatError{Function: "f"}, "result format error"},
		{"unexpected event", &turn.UnexpectedEventError{Reason: "r"}, "unexpected event"},
		{"transport error", &turn.TransportError{Op: "o", Err: fmt.Errorf("x")}, "transport error"},
		{"plain error", fmt.Errorf("anything"), "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, errorKind(tc.err))
		})
	}
}
