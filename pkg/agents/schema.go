package agents

import (
	"github.com/invopop/jsonschema"
)

// SchemaID identifies the schema of the generated agents file
const SchemaID = "https://github.com/devPermutations/agent-discovery/agents.schema.json"

// GenerateSchema returns the JSON Schema of the registry file: an object
// mapping agent names to agent records.
func GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(map[string]Agent{})
	schema.ID = SchemaID
	schema.Title = "Cursor agent registry"
	schema.Description = "Agents discovered from markdown files, keyed by agent name"
	return schema
}
