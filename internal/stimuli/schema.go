package stimuli

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://stimuli.json"

var nameList = map[string]any{
	"type":     "array",
	"items":    map[string]any{"type": "string", "minLength": 1},
	"minItems": 1,
}

var groupList = map[string]any{
	"type":     "array",
	"items":    nameList,
	"minItems": 1,
}

// documentSchema accepts either the bare nested group list or the full
// object form with tracked label sets and fixed trial orders.
var documentSchema = map[string]any{
	"oneOf": []any{
		groupList,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"stimulus_dir": map[string]any{"type": "string"},
				"groups":       groupList,
				"trial_orders": groupList,
				"tracked": map[string]any{
					"type":                 "object",
					"additionalProperties": nameList,
				},
			},
			"required":             []any{"groups"},
			"additionalProperties": false,
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go maps with []any of maps.
		b, err := json.Marshal(documentSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(b, &def); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// validate checks a decoded document value against the stimulus schema.
func validate(v any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile stimulus schema: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
