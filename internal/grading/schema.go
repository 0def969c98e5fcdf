package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchema marks a model output that parsed but does not conform to the
// grading result schema.
var ErrSchema = errors.New("grading result violates schema")

// ResultValidator checks raw model output against the versioned grading
// result JSON schema. Clean outputs get a soft check (log on violation);
// recovered outputs must pass before they are trusted.
type ResultValidator struct {
	schema *jsonschema.Schema
}

func NewResultValidator(schemaDir string) (*ResultValidator, error) {
	path := filepath.Join(schemaDir, "grading_result.v1.json")
	schema, err := jsonschema.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile grading result schema %s: %w", path, err)
	}
	return &ResultValidator{schema: schema}, nil
}

func (v *ResultValidator) Validate(raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
