package docindex

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const payloadSchemaURL = "https://schemas.documenter-search.dev/search-index.json"

// payloadSchema describes {"docs": [fragment, ...]}. Unknown record keys are
// allowed; text is optional.
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["docs"],
  "properties": {
    "docs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["location", "page", "title", "category"],
        "properties": {
          "location": {"type": "string"},
          "page": {"type": "string"},
          "title": {"type": "string"},
          "text": {"type": "string"},
          "category": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(payloadSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(payloadSchemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to add payload schema: %w", err)
	}
	return compiler.Compile(payloadSchemaURL)
})

var englishPrinter = message.NewPrinter(language.English)

// validatePayload checks the decoded payload against the schema and converts
// the first violation into a FormatError.
func validatePayload(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return &FormatError{Path: "$", Reason: err.Error(), Err: err}
	}

	leaf := validationErr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &FormatError{
		Path:   jsonPath(leaf.InstanceLocation),
		Reason: leaf.ErrorKind.LocalizedString(englishPrinter),
		Err:    err,
	}
}
