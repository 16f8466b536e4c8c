package mcp

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateToolArguments validates tool arguments against the tool's input
// schema. A tool without a schema accepts anything.
func ValidateToolArguments(def ToolDef, arguments map[string]interface{}) error {
	if len(def.InputSchema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(def.InputSchema)
	argsLoader := gojsonschema.NewGoLoader(arguments)

	result, err := gojsonschema.Validate(schemaLoader, argsLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			errs[i] = e.String()
		}
		return fmt.Errorf("invalid arguments: %v", errs)
	}

	return nil
}
