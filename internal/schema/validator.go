package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Validator handles JSON schema validation of kubeconfig documents
type Validator struct {
	kubeconfigSchema *jsonschema.Schema
	normalizedSchema *jsonschema.Schema
}

// NewValidator compiles the embedded kubeconfig schemas
func NewValidator() (*Validator, error) {
	v := &Validator{}

	kubeconfigSchema, err := loadSchema("kubeconfig.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig schema: %w", err)
	}
	v.kubeconfigSchema = kubeconfigSchema

	normalizedSchema, err := loadSchema("normalized.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load normalized schema: %w", err)
	}
	v.normalizedSchema = normalizedSchema

	return v, nil
}

// ValidateKubeConfig validates a raw kubeconfig document (YAML or JSON bytes)
func (v *Validator) ValidateKubeConfig(data []byte) error {
	if v.kubeconfigSchema == nil {
		return fmt.Errorf("kubeconfig schema not loaded")
	}
	doc, err := decode(data)
	if err != nil {
		return err
	}
	return v.kubeconfigSchema.Validate(doc)
}

// ValidateNormalized validates a rebuilt single-context kubeconfig
func (v *Validator) ValidateNormalized(data []byte) error {
	if v.normalizedSchema == nil {
		return fmt.Errorf("normalized schema not loaded")
	}
	doc, err := decode(data)
	if err != nil {
		return err
	}
	return v.normalizedSchema.Validate(doc)
}

// decode converts YAML into the JSON value model the schema compiler expects
func decode(data []byte) (interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document to JSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return value, nil
}

// loadSchema loads and compiles an embedded schema file
func loadSchema(name string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	// Convert to JSON for schema compiler
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schema, err := jsonschema.CompileString("kubefetch://"+name, string(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
