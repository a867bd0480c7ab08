package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation is a single constraint failure found while validating a
// candidate document against a schema.
type Violation struct {
	// InstanceLocation is the JSON pointer to the offending value in the
	// candidate document, e.g. "/seed_examples/2/answer". Empty for the
	// document root.
	InstanceLocation string
	// KeywordLocation is the JSON pointer to the violated keyword in the
	// schema, e.g. "/properties/seed_examples/minItems".
	KeywordLocation string
	// Message describes the violated constraint.
	Message string
}

func (v Violation) String() string {
	location := v.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("%s: %s", location, v.Message)
}

// Validate checks a candidate document against a compiled schema and returns
// every violation found. It never stops at the first failure; an empty slice
// means the document is valid. The value may come from any decoder (YAML
// included); it is normalized through a JSON round trip so the validator
// sees canonical JSON types.
func Validate(compiled *jsonschema.Schema, doc any) ([]Violation, error) {
	normalized, err := normalize(doc)
	if err != nil {
		return nil, err
	}

	err = compiled.Validate(normalized)
	if err == nil {
		return nil, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, errors.Wrap(err, "schema validation failed")
	}

	violations := flatten(ve)
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].InstanceLocation != violations[j].InstanceLocation {
			return violations[i].InstanceLocation < violations[j].InstanceLocation
		}
		return violations[i].KeywordLocation < violations[j].KeywordLocation
	})
	return violations, nil
}

// flatten walks the validation error tree and keeps only the leaf causes,
// which carry the actual violated constraints. Interior nodes only say that
// some subschema failed.
func flatten(ve *jsonschema.ValidationError) []Violation {
	if len(ve.Causes) == 0 {
		return []Violation{{
			InstanceLocation: ve.InstanceLocation,
			KeywordLocation:  ve.KeywordLocation,
			Message:          ve.Message,
		}}
	}

	var violations []Violation
	for _, cause := range ve.Causes {
		violations = append(violations, flatten(cause)...)
	}
	return violations
}

// normalize converts an arbitrary decoded value into the canonical types
// produced by encoding/json, which is what the validator operates on.
func normalize(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "document is not representable as JSON")
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, errors.Wrap(err, "failed to normalize document")
	}
	return normalized, nil
}
