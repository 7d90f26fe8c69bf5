// Package schema translates tool server metadata into the agent runtime's
// flat function-definition format.
//
// Invariants:
// - Output order matches input order; registration observes it.
// - One definition per tool, duplicate names included; rejecting duplicates
//   is the registration call's job.
// - Every emitted parameter description is non-empty.
package schema

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rocbridge/rocbridge/pkg/runtime"
	"github.com/rocbridge/rocbridge/pkg/toolserver"
)

// property is the subset of a JSON Schema property the translation reads.
type property struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type inputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]property `json:"properties"`
	Required   []string            `json:"required"`
}

// Translate converts tool specs into function definitions, preserving order.
// Malformed metadata fails with a *SchemaError; nothing is emitted partially.
func Translate(tools []toolserver.ToolSpec) ([]runtime.FunctionDefinition, error) {
	defs := make([]runtime.FunctionDefinition, 0, len(tools))

	for _, tool := range tools {
		def, err := translateTool(tool)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func translateTool(tool toolserver.ToolSpec) (runtime.FunctionDefinition, error) {
	if tool.Name == "" {
		return runtime.FunctionDefinition{}, &SchemaError{Tool: tool.Name, Reason: "tool name is empty"}
	}
	if len(tool.InputSchema) == 0 {
		return runtime.FunctionDefinition{}, &SchemaError{Tool: tool.Name, Reason: "input schema is missing"}
	}

	// The declared schema must at least compile before we interpret it.
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tool.InputSchema)); err != nil {
		return runtime.FunctionDefinition{}, &SchemaError{Tool: tool.Name, Reason: "input schema does not compile", Err: err}
	}

	var parsed inputSchema
	if err := json.Unmarshal(tool.InputSchema, &parsed); err != nil {
		return runtime.FunctionDefinition{}, &SchemaError{Tool: tool.Name, Reason: "input schema is not an object schema", Err: err}
	}
	if parsed.Type != "object" {
		return runtime.FunctionDefinition{}, &SchemaError{Tool: tool.Name, Reason: "input schema type is not object"}
	}
	if parsed.Properties == nil {
		return runtime.FunctionDefinition{}, &SchemaError{Tool: tool.Name, Reason: "input schema has no properties map"}
	}

	required := make(map[string]bool, len(parsed.Required))
	for _, name := range parsed.Required {
		required[name] = true
	}

	params := make(map[string]runtime.ParameterDetail, len(parsed.Properties))
	for name, prop := range parsed.Properties {
		description := prop.Title
		if description == "" {
			description = prop.Description
		}
		if description == "" {
			return runtime.FunctionDefinition{}, &SchemaError{
				Tool:   tool.Name,
				Reason: "parameter " + name + " has neither title nor description",
			}
		}

		params[name] = runtime.ParameterDetail{
			Type:        prop.Type,
			Description: description,
			Required:    required[name],
		}
	}

	return runtime.FunctionDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  params,
	}, nil
}
