package invoker

import (
	"errors"
	"fmt"
)

// ErrToolNotFound means a return-control function name matches no
// registered tool. The tool server is never contacted in that case.
var ErrToolNotFound = errors.New("tool not found")

// ArgumentError reports return-control arguments that are missing or
// duplicated. The tool server is never contacted in that case.
type ArgumentError struct {
	Function string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("arguments for %q: %s", e.Function, e.Reason)
}

// ResultFormatError reports a tool result with no extractable text segment.
type ResultFormatError struct {
	Function string
}

func (e *ResultFormatError) Error() string {
	return fmt.Sprintf("result of %q contains no text segment", e.Function)
}
