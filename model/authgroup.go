package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// AuthorizationGroup is one caller-bearing authorization tuple. Variables
// carry semantic meaning in their own internal order (e.g. a "session
// group" scoped to a particular session id) and are never reordered.
type AuthorizationGroup struct {
	Name      string   `json:"name"`
	Variables []string `json:"variables"`
}

func (g AuthorizationGroup) sortKey() string {
	return g.Name + strings.Join(g.Variables, "")
}

// AuthorizationGroupSet is the ordered list of groups a caller presented,
// normally via the MU-AUTH-ALLOWED-GROUPS header (§6). It partitions the
// RDF store into visibility slices and, canonicalized, is the partition
// key used by the Index Registry.
type AuthorizationGroupSet []AuthorizationGroup

// Canonicalize returns a new set sorted by the string Name ∥
// concat(Variables) — the defined ordering for a stable, permutation-
// independent serialization. Each group's own Variables order is
// preserved; only the relative order of groups changes.
func (s AuthorizationGroupSet) Canonicalize() AuthorizationGroupSet {
	out := make(AuthorizationGroupSet, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].sortKey() < out[j].sortKey()
	})
	return out
}

// Key returns the canonical JSON serialization of the canonicalized group
// set, used as half of the Index Registry's (typeName, canonicalGroups)
// lookup key. It is stable under any permutation of groups that share a
// sort key and order-sensitive within a group's Variables, per §3.
func (s AuthorizationGroupSet) Key() string {
	canon := s.Canonicalize()
	// json.Marshal never fails on this concrete, non-cyclic struct slice.
	b, _ := json.Marshal(canon)
	return string(b)
}

// Filter removes groups whose Name is one of ignoredNames, for the config
// key ignored_allowed_groups (§6). Names are compared for exact equality;
// no wildcard or pattern matching is done.
func (s AuthorizationGroupSet) Filter(ignoredNames map[string]struct{}) AuthorizationGroupSet {
	if len(ignoredNames) == 0 {
		return s
	}
	out := make(AuthorizationGroupSet, 0, len(s))
	for _, g := range s {
		if _, ignored := ignoredNames[g.Name]; ignored {
			continue
		}
		out = append(out, g)
	}
	return out
}
