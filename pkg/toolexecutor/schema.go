package toolexecutor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// compileSchema compiles a tool's discovered input schema.
func compileSchema(schema map[string]interface{}) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
}

// validateArguments validates arguments against a compiled schema.
func validateArguments(schema *gojsonschema.Schema, arguments map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(arguments))
	if err != nil {
		return err
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("validation errors: %s", strings.Join(problems, "; "))
	}

	return nil
}
