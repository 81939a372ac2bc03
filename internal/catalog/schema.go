package catalog

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// conceptSchema is the structural contract for concept files. Referential
// checks (prerequisite existence, acyclicity) happen later in finalize;
// this catches malformed documents with a readable error before any index
// is built.
const conceptSchema = `{
	"type": "object",
	"required": ["concepts"],
	"properties": {
		"concepts": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "ordinal"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"ordinal": {"type": "integer", "minimum": 0},
					"prerequisites": {
						"type": "array",
						"items": {"type": "string", "minLength": 1}
					},
					"base_difficulty": {"type": "number", "minimum": 0, "maximum": 1},
					"lesson": {"type": "string"}
				}
			}
		}
	}
}`

// validateConceptDocument checks raw YAML bytes against conceptSchema.
func validateConceptDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing concept file: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(conceptSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validating concept file: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return integrityErrorf("concept file schema: %s: %s", first.Field(), first.Description())
	}
	return nil
}
