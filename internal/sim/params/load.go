package params

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"treg2d/internal/sim/simerr"
)

//go:embed params.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("params.schema.json", schemaJSON)

// Load reads a parameter document, checks its shape against the embedded
// schema, then decodes and validates it.
func Load(path string) (Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, &simerr.ConfigurationError{Err: fmt.Errorf("params: %w", err)}
	}
	return Parse(raw)
}

// Parse is Load without the file system.
func Parse(raw []byte) (Params, error) {
	var p Params

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return p, &simerr.ConfigurationError{Err: fmt.Errorf("params.yaml: %w", err)}
	}
	generic, err := toJSONValue(doc)
	if err != nil {
		return p, &simerr.ConfigurationError{Err: fmt.Errorf("params.yaml: %w", err)}
	}
	if err := schema.Validate(generic); err != nil {
		return p, schemaError(err)
	}

	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, &simerr.ConfigurationError{Err: fmt.Errorf("params.yaml: %w", err)}
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// toJSONValue turns a yaml.v3 tree into the value shapes the schema
// validator understands.
func toJSONValue(doc any) (any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// schemaError reports the innermost schema failure as a ConfigurationError
// naming the category and field it points at.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &simerr.ConfigurationError{Err: err}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	parts := strings.Split(strings.Trim(leaf.InstanceLocation, "/"), "/")
	ce := &simerr.ConfigurationError{Err: errors.New(leaf.Message)}
	if len(parts) > 0 && parts[0] != "" {
		ce.Category = parts[0]
	}
	if len(parts) > 1 {
		ce.Field = strings.Join(parts[1:], ".")
	}
	return ce
}
