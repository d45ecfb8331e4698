package script

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the script library file format so scenario files can
// be validated by editors before they are loaded.
func JSONSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(&Library{})
	schema.Title = "Guide script library"
	schema.Description = "Question scripts, step phrases and closings spoken by the voice guide"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode script schema: %w", err)
	}
	return data, nil
}
