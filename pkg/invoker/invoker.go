// Package invoker maps return-control function calls onto tool server calls
// and extracts their textual results.
//
// Invariants:
// - Argument and registration errors are detected before the tool server is
//   contacted.
// - Duplicate argument names are an error, never last-write-wins.
// - Tool side effects are neither suppressed nor retried.
package invoker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rocbridge/rocbridge/pkg/runtime"
	"github.com/rocbridge/rocbridge/pkg/toolserver"
)

// Invoker resolves return-control requests against the registered function
// definitions and delegates to the tool server.
type Invoker struct {
	definitions map[string]runtime.FunctionDefinition
	server      toolserver.Caller
	logger      zerolog.Logger
}

// Config holds invoker construction parameters.
type Config struct {
	Definitions []runtime.FunctionDefinition
	Server      toolserver.Caller
	Logger      zerolog.Logger
}

// New creates an invoker over the given definitions and tool server.
func New(cfg Config) (*Invoker, error) {
	if cfg.Server == nil {
		return nil, fmt.Errorf("tool server caller is required")
	}

	definitions := make(map[string]runtime.FunctionDefinition, len(cfg.Definitions))
	for _, def := range cfg.Definitions {
		definitions[def.Name] = def
	}

	return &Invoker{
		definitions: definitions,
		server:      cfg.Server,
		logger:      cfg.Logger,
	}, nil
}

// Invoke executes the tool named by the return-control request and returns
// the first text segment of its result.
func (i *Invoker) Invoke(ctx context.Context, req runtime.ReturnControl) (string, error) {
	def, ok := i.definitions[req.Function]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, req.Function)
	}

	args, err := argumentMap(req)
	if err != nil {
		return "", err
	}

	for name, param := range def.Parameters {
		if !param.Required {
			continue
		}
		if _, present := args[name]; !present {
			return "", &ArgumentError{Function: req.Function, Reason: "required parameter " + name + " is missing"}
		}
	}

	i.logger.Debug().
		Str("function", req.Function).
		Int("args", len(args)).
		Msg("Calling tool")

	result, err := i.server.CallTool(ctx, req.Function, args)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", req.Function, err)
	}

	text, ok := result.FirstText()
	if !ok {
		return "", &ResultFormatError{Function: req.Function}
	}

	return text, nil
}

// argumentMap converts the ordered name/value list into a mapping,
// rejecting duplicates.
func argumentMap(req runtime.ReturnControl) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(req.Parameters))
	for _, param := range req.Parameters {
		if _, seen := args[param.Name]; seen {
			return nil, &ArgumentError{Function: req.Function, Reason: "duplicate parameter " + param.Name}
		}
		args[param.Name] = param.Value
	}
	return args, nil
}
