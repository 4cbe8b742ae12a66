// Package validate wraps a JSON-Schema (Draft-07) validator over the
// prepared canonical event.
package validate

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Sebastian25gb/nubla-siem/logging"
)

// ValidationError is a single schema violation with a dotted JSON path.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator holds a compiled schema loaded once at startup. A nil
// Validator (or one built via LoadOptional that failed to load) means
// validation is skipped in degraded mode.
type Validator struct {
	schema *jsonschema.Schema
}

// Load compiles the schema at path.
func Load(path string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	schema, err := compiler.Compile(path)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: schema}, nil
}

// LoadOptional loads the schema if path is non-empty, logging and
// returning a nil *Validator (degraded mode, not an error) on any failure:
// a schema load failure disables validation rather than aborting startup,
// so events pass through unvalidated until the schema is fixed.
func LoadOptional(path string, log *logging.Logger) *Validator {
	if path == "" {
		log.Warn("schema_validator_disabled", logging.F("reason", "no path configured"))
		return nil
	}
	v, err := Load(path)
	if err != nil {
		log.Warn("schema_validator_disabled", logging.F("path", path), logging.F("error", err))
		return nil
	}
	log.Info("schema_validator_loaded", logging.F("path", path))
	return v
}

// Validate checks doc against the compiled schema. A nil Validator always
// reports no errors (validation-skipped degraded mode).
func (v *Validator) Validate(doc map[string]interface{}) []ValidationError {
	if v == nil || v.schema == nil {
		return nil
	}
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationError{{Path: "", Message: err.Error()}}
	}
	return flatten(ve)
}

func flatten(ve *jsonschema.ValidationError) []ValidationError {
	var out []ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, ValidationError{
				Path:    strings.ReplaceAll(strings.TrimPrefix(e.InstanceLocation, "/"), "/", "."),
				Message: e.Message,
			})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
