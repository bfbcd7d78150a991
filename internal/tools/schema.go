package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateArgs validates args against the JSON-schema document
// schema. A tool's Declaration.Parameters is always such a document:
// type "object", a properties map, and an optional required list.
func ValidateArgs(schema, args json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var value any
	if len(args) == 0 {
		value = map[string]any{}
	} else if err := json.Unmarshal(args, &value); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	if err := compiled.Validate(value); err != nil {
		return err
	}
	return nil
}

// ObjectSchema builds a Declaration.Parameters document with the
// given properties and required field names, the shape every builtin
// tool in this package declares.
func ObjectSchema(properties map[string]any, required []string) json.RawMessage {
	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	raw, _ := json.Marshal(doc)
	return raw
}
