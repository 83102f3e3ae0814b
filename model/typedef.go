package model

// PropertyKind discriminates how a PropertyDefinition's bound values are
// converted into a document field by the Document Builder (§4.3).
type PropertyKind string

const (
	KindSimple         PropertyKind = "simple"
	KindNested         PropertyKind = "nested"
	KindAttachment     PropertyKind = "attachment"
	KindLanguageString PropertyKind = "languageString"
)

// PropertyDefinition describes how to derive one document field from the
// RDF graph rooted at a type's root subject.
type PropertyDefinition struct {
	Name string
	Path Path
	Kind PropertyKind

	// Nested-only.
	RDFType       string
	SubProperties []PropertyDefinition

	// Attachment-only: the content-extractor pipeline identifier.
	Pipeline string
}

// TypeDefinition is an immutable-after-load description of one indexable
// document type: which RDF classes root it, and how to derive each of its
// properties.
type TypeDefinition struct {
	Name       string
	OnPath     string
	RDFTypes   []string
	Properties []PropertyDefinition

	// CompositeOf names other TypeDefinitions whose built documents are
	// smart-merged to produce this type's document. Composite types are
	// never the target of delta-driven discovery directly (§3); only
	// their constituents are.
	CompositeOf []string
}

// IsComposite reports whether this type is assembled by merging other
// types' documents rather than being queried directly.
func (t TypeDefinition) IsComposite() bool {
	return len(t.CompositeOf) > 0
}

// HasRDFType reports whether uri is one of the type's root RDF classes.
func (t TypeDefinition) HasRDFType(uri string) bool {
	for _, rt := range t.RDFTypes {
		if rt == uri {
			return true
		}
	}
	return false
}

// PropertiesReferencing returns every property whose path contains
// predicate as a forward or inverse edge, used by delta Stage 2 to decide
// whether a triple affects this type at all.
func (t TypeDefinition) PropertiesReferencing(predicate string) []PropertyDefinition {
	var out []PropertyDefinition
	for _, p := range t.Properties {
		if _, _, ok := p.Path.ContainsPredicate(predicate); ok {
			out = append(out, p)
		}
	}
	return out
}
