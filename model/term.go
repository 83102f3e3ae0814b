// Package model defines the tagged-variant data shapes that flow through the
// index maintenance pipeline: RDF terms and triples, property paths, type
// definitions, authorization group sets, search index records, and update
// queue entries. Values are parsed once, at config-load or delta-ingest time,
// into these discriminated structs rather than re-parsed from strings at
// query time.
package model

import "fmt"

// TermType discriminates the two kinds of RDF term this system needs to
// reason about. Blank nodes are treated as URIs for path-traversal purposes;
// the distinction that matters here is only "can this appear as an object of
// a continuing path step" (URI) versus "terminal value only" (literal).
type TermType string

const (
	TermURI     TermType = "uri"
	TermLiteral TermType = "literal"
)

// Term is an RDF term: a URI or a literal, optionally carrying a datatype or
// a language tag. Datatype and Language are mutually exclusive by RDF's own
// rules and are never both non-nil.
type Term struct {
	TermType TermType
	Value    string
	Datatype *string
	Language *string
}

// NewURI builds a URI term.
func NewURI(value string) Term {
	return Term{TermType: TermURI, Value: value}
}

// NewLiteral builds a plain literal term with no datatype or language tag.
func NewLiteral(value string) Term {
	return Term{TermType: TermLiteral, Value: value}
}

// NewLangLiteral builds a language-tagged literal term.
func NewLangLiteral(value, lang string) Term {
	l := lang
	return Term{TermType: TermLiteral, Value: value, Language: &l}
}

// NewTypedLiteral builds a datatyped literal term.
func NewTypedLiteral(value, datatype string) Term {
	dt := datatype
	return Term{TermType: TermLiteral, Value: value, Datatype: &dt}
}

// IsLiteral reports whether the term is a literal (cannot be traversed
// further as a path subject).
func (t Term) IsLiteral() bool {
	return t.TermType == TermLiteral
}

// SPARQL renders the term in SPARQL term syntax: <uri>, "value",
// "value"@lang, or "value"^^<datatype>.
func (t Term) SPARQL() string {
	if t.TermType == TermURI {
		return fmt.Sprintf("<%s>", t.Value)
	}
	if t.Language != nil {
		return fmt.Sprintf("%q@%s", t.Value, *t.Language)
	}
	if t.Datatype != nil {
		return fmt.Sprintf("%q^^<%s>", t.Value, *t.Datatype)
	}
	return fmt.Sprintf("%q", t.Value)
}

// Triple is one RDF statement tagged with whether it was inserted or
// deleted in the delta it arrived in.
type Triple struct {
	Subject    Term
	Predicate  Term
	Object     Term
	IsAddition bool
}

// RDFTypePredicate is the rdf:type predicate URI, checked throughout the
// delta pipeline for both known-subject shortcutting and type resolution.
const RDFTypePredicate = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// DefaultUUIDPredicate is the platform predicate used to tag resources with
// a stable UUID. Triples on this predicate carry no semantic bearing on path
// matching and are filtered out of delta processing (§4.1 Stage 1).
const DefaultUUIDPredicate = "http://mu.semte.ch/vocabularies/core/uuid"
