package provider

import (
	"github.com/casualjim/zentry/pkg/jsonx"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var toolReflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// Tool describes a function the model may call.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON schema of the function arguments, always an object.
	Parameters *jsonschema.Schema
}

// ToolFor builds a tool whose parameters are the JSON schema of T.
func ToolFor[T any](name, description string) Tool {
	var v T
	schema := toolReflector.Reflect(v)
	schema.Version = ""
	return Tool{Name: name, Description: description, Parameters: schema}
}

// ParametersSchema returns the parameter schema, defaulting to an empty object.
func (t Tool) ParametersSchema() *jsonschema.Schema {
	if t.Parameters != nil {
		return t.Parameters
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
}

// ParametersMap returns the parameter schema as a dynamic JSON object,
// the shape most vendor SDKs accept.
func (t Tool) ParametersMap() (map[string]any, error) {
	return jsonx.ToDynamicJSON(t.ParametersSchema())
}

// PropertiesMap returns only the "properties" member of the parameter schema
// as dynamic JSON objects keyed by property name, in declaration order.
func (t Tool) PropertiesMap() (*orderedmap.OrderedMap[string, map[string]any], error) {
	out := orderedmap.New[string, map[string]any]()
	props := t.ParametersSchema().Properties
	if props == nil {
		return out, nil
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		m, err := jsonx.ToDynamicJSON(pair.Value)
		if err != nil {
			return nil, err
		}
		out.Set(pair.Key, m)
	}
	return out, nil
}
