package builder

import (
	"encoding/json"
	"fmt"

	"github.com/evalgo/semindex/apperr"
)

// smartMerge implements §4.3's composite-document merge: a total function
// over the closed set of shapes {nil, scalar, list, map}. Any other
// pairing (e.g. a list merged with a map) is a configuration error raised
// eagerly, never silently coerced (Design Note: "composite types and smart
// merge").
func smartMerge(a, b interface{}) (interface{}, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}

	aList, aIsList := a.([]interface{})
	bList, bIsList := b.([]interface{})
	aMap, aIsMap := a.(map[string]interface{})
	bMap, bIsMap := b.(map[string]interface{})

	switch {
	case aIsMap && bIsMap:
		return mergeMaps(aMap, bMap)
	case aIsList && bIsList:
		return dedupConcat(append(append([]interface{}{}, aList...), bList...)), nil
	case aIsList && !bIsMap:
		return dedupConcat(append(append([]interface{}{}, aList...), b)), nil
	case bIsList && !aIsMap:
		return dedupConcat(append([]interface{}{a}, bList...)), nil
	case !aIsMap && !bIsMap && !aIsList && !bIsList:
		merged := dedupConcat([]interface{}{a, b})
		if len(merged) == 1 {
			return merged[0], nil
		}
		return merged, nil
	default:
		return nil, apperr.New(apperr.Config, "builder.smartMerge",
			fmt.Errorf("incompatible shapes for merge: %T vs %T", a, b))
	}
}

func mergeMaps(a, b map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			merged, err := smartMerge(existing, v)
			if err != nil {
				return nil, err
			}
			out[k] = merged
		} else {
			out[k] = v
		}
	}
	return out, nil
}

// dedupConcat removes duplicate values (compared by their JSON encoding,
// since property values may be scalars, strings, or nested document maps)
// while preserving first-seen order.
func dedupConcat(values []interface{}) []interface{} {
	seen := make(map[string]struct{}, len(values))
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		key, err := json.Marshal(v)
		k := string(key)
		if err != nil {
			k = fmt.Sprintf("%v", v)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
