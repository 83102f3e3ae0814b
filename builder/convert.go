package builder

import (
	"strconv"
	"strings"

	"github.com/evalgo/semindex/model"
)

const (
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
	xsdInt     = "http://www.w3.org/2001/XMLSchema#int"
	xsdLong    = "http://www.w3.org/2001/XMLSchema#long"
	xsdDouble  = "http://www.w3.org/2001/XMLSchema#double"
	xsdDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdFloat   = "http://www.w3.org/2001/XMLSchema#float"
	xsdBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)

// convertSimple converts a bound term to a scalar value for a "simple"
// property, per §4.3: integer/double/decimal → number, boolean → bool,
// date/time/dateTime → lexical string, generic literal → string,
// URI → string.
func convertSimple(t model.Term) interface{} {
	if t.TermType == model.TermURI {
		return t.Value
	}
	if t.Datatype == nil {
		return t.Value
	}
	switch *t.Datatype {
	case xsdInteger, xsdInt, xsdLong:
		if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return n
		}
	case xsdDouble, xsdDecimal, xsdFloat:
		if n, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return n
		}
	case xsdBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(t.Value)); err == nil {
			return b
		}
	}
	// date/time/dateTime and any unrecognized datatype keep the lexical
	// form, per §4.3.
	return t.Value
}

// reduce collapses a slice of values to a scalar if exactly one, nil if
// zero, or the list itself otherwise (§4.3 "reduce each property...").
func reduce(values []interface{}) interface{} {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		return values
	}
}
