package config

import (
	"fmt"

	"github.com/evalgo/semindex/model"
)

// Validator accumulates configuration validation errors, adapted from the
// teacher's config.Validator.
type Validator struct {
	errors []string
}

func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

func (v *Validator) Errors() []string {
	return v.errors
}

func (v *Validator) ErrorString() string {
	if len(v.errors) == 0 {
		return ""
	}
	out := v.errors[0]
	for _, e := range v.errors[1:] {
		out += "; " + e
	}
	return out
}

func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", v.ErrorString())
	}
	return nil
}

// ValidateDocument checks the invariants required before the rest of the
// process can wire up against doc: positive batching knobs, at least one
// indexable type, and well-formed type/property definitions.
func ValidateDocument(doc *Document) error {
	v := NewValidator()

	v.RequirePositiveInt("batch_size", doc.BatchSize)
	v.RequirePositiveInt("delta_batch_size", doc.DeltaBatchSize)
	v.RequirePositiveInt("number_of_threads", doc.NumberOfThreads)

	if len(doc.Types) == 0 {
		v.errors = append(v.errors, "types must declare at least one entry")
	}
	for name, def := range doc.Types {
		if !def.IsComposite() && len(def.RDFTypes) == 0 {
			v.errors = append(v.errors, fmt.Sprintf("types.%s: rdfTypes is required for a non-composite type", name))
		}
		for _, p := range def.Properties {
			if p.Kind == model.KindAttachment && doc.AttachmentsPathBase == "" {
				v.errors = append(v.errors, fmt.Sprintf("types.%s.%s: attachment property requires attachments_path_base", name, p.Name))
			}
		}
	}

	return v.Validate()
}
