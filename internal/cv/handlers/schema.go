package handlers

import (
	_ "embed"
	"fmt"
	"strings"

	e "github.com/gartstein/cvtracker/internal/cv/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed seed.schema.json
var seedSchemaJSON []byte

// SchemaError lists every violation found in a payload.
type SchemaError struct {
	Details []string
}

func (s *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(s.Details, "; "))
}

func (s *SchemaError) Unwrap() error { return e.ErrInvalidInput }

// payloadValidator checks raw JSON bodies against a compiled schema.
type payloadValidator struct {
	schema *gojsonschema.Schema
}

func newSeedValidator() (*payloadValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(seedSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile seed schema: %w", err)
	}
	return &payloadValidator{schema: schema}, nil
}

func (v *payloadValidator) Validate(body []byte) error {
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", e.ErrInvalidInput, err)
	}
	if res.Valid() {
		return nil
	}
	details := make([]string, 0, len(res.Errors()))
	for _, re := range res.Errors() {
		details = append(details, re.String())
	}
	return &SchemaError{Details: details}
}
