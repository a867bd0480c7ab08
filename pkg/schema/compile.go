package schema

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceURL is the synthetic base under which the embedded documents are
// registered with the compiler. Relative $ref values such as "version.json"
// resolve against it, so sibling documents in the same version directory
// compose without any network access.
func resourceURL(version int, name string) string {
	return "taxonomy:///v" + strconv.Itoa(version) + "/" + name
}

// CompileError reports that a schema document is not itself a legal JSON
// Schema draft 2020-12 document. It is a distinct failure kind from a
// candidate document failing validation against a healthy schema.
type CompileError struct {
	SchemaVersion int
	Name          string
	Err           error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("schema document v%d/%s is invalid: %v", e.SchemaVersion, e.Name, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Violations returns the individual meta-schema violations when the
// underlying compiler error carries them, or a single synthesized entry
// otherwise (e.g. for unparseable JSON or an unresolvable $ref).
func (e *CompileError) Violations() []Violation {
	var se *jsonschema.SchemaError
	if errors.As(e.Err, &se) {
		var ve *jsonschema.ValidationError
		if errors.As(se.Err, &ve) {
			return flatten(ve)
		}
	}
	return []Violation{{Message: e.Err.Error()}}
}

// Compile compiles one embedded schema document, resolving $ref against its
// sibling documents in the same version directory. Compilation doubles as
// meta-validation: a document that does not conform to the draft 2020-12
// meta-schema fails here with a *CompileError.
func Compile(version int, name string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	for _, sibling := range DocumentNames() {
		data, err := Read(version, sibling)
		if err != nil {
			return nil, &CompileError{SchemaVersion: version, Name: sibling, Err: err}
		}
		if err := compiler.AddResource(resourceURL(version, sibling), bytes.NewReader(data)); err != nil {
			return nil, &CompileError{SchemaVersion: version, Name: sibling, Err: err}
		}
	}

	compiled, err := compiler.Compile(resourceURL(version, name))
	if err != nil {
		return nil, &CompileError{SchemaVersion: version, Name: name, Err: err}
	}
	return compiled, nil
}

// CheckAll meta-validates every embedded schema document across all
// versions, collecting every failure rather than stopping at the first.
func CheckAll() error {
	versions, err := Versions()
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, version := range versions {
		for _, name := range DocumentNames() {
			if _, err := Compile(version, name); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}
