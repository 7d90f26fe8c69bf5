package schema

import "fmt"

// SchemaError reports tool metadata that cannot be translated. It is fatal
// to startup: no registration happens once translation fails.
type SchemaError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %q: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
