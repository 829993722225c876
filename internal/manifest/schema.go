package manifest

import (
	"bytes"
	"encoding/json"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaName = "egress-manifest-record.json"

const recordSchemaSource = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["notionId", "repo_path"],
  "properties": {
    "notionId": {"type": "string", "minLength": 1},
    "ft-id": {"type": "string"},
    "repo_path": {"type": "string", "minLength": 1}
  }
}`

var recordSchema = mustCompile(recordSchemaName, recordSchemaSource)

func mustCompile(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader([]byte(source))); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// validateRecord checks one raw manifest entry before it is decoded.
func validateRecord(raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return recordSchema.Validate(doc)
}
