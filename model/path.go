package model

import "strings"

// Edge is one step of a property path: a predicate URI, and whether the
// step is traversed in the inverse direction (^predicate means "?b such
// that ?b predicate ?a", not "?a predicate ?b").
type Edge struct {
	Predicate string
	Inverse   bool
}

// Path is a non-empty ordered sequence of edges. It is parsed once from its
// string form at config load and never re-parsed from strings at query
// time (Design Note: "dynamically typed graphs of triples").
type Path []Edge

// ParsePath parses a slice of path segment strings, each either a bare
// predicate URI (forward edge) or a predicate URI prefixed with "^"
// (inverse edge), into a Path. An empty input is rejected: property paths
// must have length >= 1.
func ParsePath(segments []string) (Path, error) {
	if len(segments) == 0 {
		return nil, errEmptyPath
	}
	path := make(Path, 0, len(segments))
	for _, seg := range segments {
		if strings.HasPrefix(seg, "^") {
			path = append(path, Edge{Predicate: seg[1:], Inverse: true})
		} else {
			path = append(path, Edge{Predicate: seg})
		}
	}
	return path, nil
}

var errEmptyPath = pathError("property path must contain at least one edge")

type pathError string

func (e pathError) Error() string { return string(e) }

// ContainsPredicate reports whether any edge in the path matches predicate,
// returning the position and inverse flag of the first match. It reports
// only the first match; delta Stage 3b (shape grouping) iterates every
// matching position through Positions instead.
func (p Path) ContainsPredicate(predicate string) (pos int, inverse bool, ok bool) {
	for i, e := range p {
		if e.Predicate == predicate {
			return i, e.Inverse, true
		}
	}
	return 0, false, false
}

// Positions returns every index in the path at which predicate appears,
// since a property path may reference the same predicate more than once
// (e.g. a self-referential hierarchy edge traversed twice).
func (p Path) Positions(predicate string) []int {
	var out []int
	for i, e := range p {
		if e.Predicate == predicate {
			out = append(out, i)
		}
	}
	return out
}

// String renders the path back to its "/"-composed, "^"-prefixed form, used
// when logging and as the path component of delta shape-bucket keys. The
// path_to_target / path_from_target graph pattern fragments are built by
// SPARQLPath.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		if e.Inverse {
			parts[i] = "^" + e.Predicate
		} else {
			parts[i] = e.Predicate
		}
	}
	return strings.Join(parts, "/")
}

// SPARQLPath renders the path as a SPARQL 1.1 property path expression:
// each edge as <predicate> (forward) or ^<predicate> (inverse), composed
// with the "/" sequence operator.
func (p Path) SPARQLPath() string {
	parts := make([]string, len(p))
	for i, e := range p {
		if e.Inverse {
			parts[i] = "^<" + e.Predicate + ">"
		} else {
			parts[i] = "<" + e.Predicate + ">"
		}
	}
	return strings.Join(parts, "/")
}

// Prefix returns the sub-path of edges [0, pos), used to compose
// path_to_target graph pattern fragments (§4.1.1).
func (p Path) Prefix(pos int) Path {
	return p[:pos]
}

// Suffix returns the sub-path of edges (pos, len(p)), used to compose
// path_from_target graph pattern fragments (§4.1.1).
func (p Path) Suffix(pos int) Path {
	return p[pos+1:]
}

// EdgeAt returns the edge at pos.
func (p Path) EdgeAt(pos int) Edge {
	return p[pos]
}
