package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gmarchiori/wafertrack/constants"
	"github.com/gmarchiori/wafertrack/internal/common"
)

// BuildDatasheetDefinitionSchema returns the JSON-Schema (draft 2020-12
// subset) every blueprint's datasheetDefinition must satisfy: known field
// shapes, a required methodInfo for rootMeasurement columns, and free-form
// selection methods elsewhere (the policy set is open).
func BuildDatasheetDefinitionSchema() map[string]any {
	rangeProp := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"min":     map[string]any{"type": "number"},
			"max":     map[string]any{"type": "number"},
			"typical": map[string]any{"type": "number"},
			"unit":    map[string]any{"type": "string"},
		},
	}
	stringArray := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	entry := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"result_name":      map[string]any{"type": "string", "minLength": 1},
			"location_group":   map[string]any{"type": "string", "minLength": 1},
			"selection_method": map[string]any{"type": "string", "minLength": 1},
			"value_range":      rangeProp,
			"outliers_range":   rangeProp,
			"tag_filters": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"required":   stringArray,
					"to_exclude": stringArray,
				},
			},
			"datasheet_ready": map[string]any{"type": "boolean"},
			"method_info": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"root_measurement": map[string]any{"type": "string", "minLength": 1},
					"root_locations_map": map[string]any{
						"type":                 "object",
						"additionalProperties": map[string]any{"type": "string"},
					},
					"backup_method": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
		"required": []string{"result_name", "location_group", "selection_method"},
		// rootMeasurement columns must carry their method parameters.
		"if": map[string]any{
			"properties": map[string]any{
				"selection_method": map[string]any{"const": string(constants.SelectRootMeasurement)},
			},
		},
		"then": map[string]any{
			"required": []string{"method_info"},
			"properties": map[string]any{
				"method_info": map[string]any{
					"required": []string{"root_measurement", "backup_method"},
				},
			},
		},
	}
	return map[string]any{
		"type":  "array",
		"items": entry,
	}
}

// ValidateDatasheetDefinition validates a raw datasheetDefinition document.
// A violation is a malformed definition, not a recoverable gap.
func ValidateDatasheetDefinition(data []byte) error {
	if err := validateJSONAgainstSchema(BuildDatasheetDefinitionSchema(), data); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedDefinition, err)
	}
	return nil
}

// validateJSONAgainstSchema validates "data" against "schemaMap".
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
