package delta

import (
	"fmt"
	"strings"

	"github.com/evalgo/semindex/model"
)

// shapeKey identifies one (path, position, inverse, isAddition) bucket.
// pathStr disambiguates paths that happen to match the same predicate at
// the same position from different properties.
type shapeKey struct {
	pathStr    string
	position   int
	inverse    bool
	isAddition bool
}

type shapeBucket struct {
	path       model.Path
	position   int
	inverse    bool
	isAddition bool
	triples    []model.Triple
}

// buildShapeQuery constructs the single parameterized SELECT for one
// shape bucket's batch, per §4.1.1's table and graph-pattern composition.
func buildShapeQuery(rdfTypes []string, b shapeBucket) string {
	varNames, rows := valuesClause(b)

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ?s WHERE {\n")
	fmt.Fprintf(&sb, "  VALUES ?type { %s }\n", joinTypes(rdfTypes))
	fmt.Fprintf(&sb, "  VALUES (%s) { %s }\n", strings.Join(varNames, " "), strings.Join(rows, " "))
	sb.WriteString("  ?s a ?type .\n")

	target := "?s"
	if b.position > 0 {
		target = "?target_sub"
		prefix := b.path.Prefix(b.position)
		fmt.Fprintf(&sb, "  ?s %s ?target_sub .\n", prefix.SPARQLPath())
	}

	if b.isAddition {
		predicate := b.path.EdgeAt(b.position).Predicate
		if b.inverse {
			fmt.Fprintf(&sb, "  ?triple_sub <%s> %s .\n", predicate, target)
		} else {
			fmt.Fprintf(&sb, "  %s <%s> ?obj .\n", target, predicate)
		}

		suffix := b.path.Suffix(b.position)
		if len(suffix) > 0 {
			root := "?obj"
			if b.inverse {
				root = "?triple_sub"
			}
			fmt.Fprintf(&sb, "  %s %s ?pathTail .\n", root, suffix.SPARQLPath())
		}
	}

	sb.WriteString("}")
	return sb.String()
}

// valuesClause renders the VALUES variable list and bound rows for a
// shape bucket, per §4.1.1's table.
func valuesClause(b shapeBucket) (varNames []string, rows []string) {
	switch {
	case !b.isAddition && b.position == 0:
		varNames = []string{"?s"}
		for _, t := range b.triples {
			rows = append(rows, fmt.Sprintf("(%s)", t.Subject.SPARQL()))
		}
	case !b.isAddition && b.position > 0:
		varNames = []string{"?target_sub"}
		for _, t := range b.triples {
			target := t.Subject
			if b.inverse {
				target = t.Object
			}
			rows = append(rows, fmt.Sprintf("(%s)", target.SPARQL()))
		}
	case b.isAddition && b.position == 0 && !b.inverse:
		varNames = []string{"?s", "?obj"}
		for _, t := range b.triples {
			rows = append(rows, fmt.Sprintf("(%s %s)", t.Subject.SPARQL(), t.Object.SPARQL()))
		}
	case b.isAddition && b.position == 0 && b.inverse:
		varNames = []string{"?s", "?triple_sub"}
		for _, t := range b.triples {
			rows = append(rows, fmt.Sprintf("(%s %s)", t.Object.SPARQL(), t.Subject.SPARQL()))
		}
	case b.isAddition && b.position > 0 && !b.inverse:
		varNames = []string{"?target_sub", "?obj"}
		for _, t := range b.triples {
			rows = append(rows, fmt.Sprintf("(%s %s)", t.Subject.SPARQL(), t.Object.SPARQL()))
		}
	default: // isAddition && position > 0 && inverse
		varNames = []string{"?target_sub", "?triple_sub"}
		for _, t := range b.triples {
			rows = append(rows, fmt.Sprintf("(%s %s)", t.Object.SPARQL(), t.Subject.SPARQL()))
		}
	}
	return varNames, rows
}

func joinTypes(rdfTypes []string) string {
	values := make([]string, len(rdfTypes))
	for i, t := range rdfTypes {
		values[i] = fmt.Sprintf("<%s>", t)
	}
	return strings.Join(values, " ")
}

// chunk splits triples into slices of at most size (§4.1 Stage 3c).
func chunk(triples []model.Triple, size int) [][]model.Triple {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]model.Triple
	for len(triples) > 0 {
		n := size
		if n > len(triples) {
			n = len(triples)
		}
		out = append(out, triples[:n])
		triples = triples[n:]
	}
	return out
}
