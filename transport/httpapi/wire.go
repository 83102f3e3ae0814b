package httpapi

import (
	"fmt"

	"github.com/evalgo/semindex/delta"
	"github.com/evalgo/semindex/model"
)

// wireTerm mirrors the JSON shape of one RDF term in the delta ingestion
// contract (§6): {type, value, datatype?, "xml:lang"?}.
type wireTerm struct {
	Type     string  `json:"type"`
	Value    string  `json:"value"`
	Datatype *string `json:"datatype,omitempty"`
	Lang     *string `json:"xml:lang,omitempty"`
}

func (t wireTerm) toTerm() (model.Term, error) {
	switch t.Type {
	case "uri":
		return model.NewURI(t.Value), nil
	case "literal":
		switch {
		case t.Lang != nil:
			return model.NewLangLiteral(t.Value, *t.Lang), nil
		case t.Datatype != nil:
			return model.NewTypedLiteral(t.Value, *t.Datatype), nil
		default:
			return model.NewLiteral(t.Value), nil
		}
	default:
		return model.Term{}, fmt.Errorf("httpapi: unknown term type %q", t.Type)
	}
}

// wireTriple mirrors the JSON shape of one triple in a changeset.
type wireTriple struct {
	Subject   wireTerm `json:"subject"`
	Predicate wireTerm `json:"predicate"`
	Object    wireTerm `json:"object"`
}

func (t wireTriple) toTriple(isAddition bool) (model.Triple, error) {
	subject, err := t.Subject.toTerm()
	if err != nil {
		return model.Triple{}, err
	}
	predicate, err := t.Predicate.toTerm()
	if err != nil {
		return model.Triple{}, err
	}
	object, err := t.Object.toTerm()
	if err != nil {
		return model.Triple{}, err
	}
	return model.Triple{Subject: subject, Predicate: predicate, Object: object, IsAddition: isAddition}, nil
}

// wireChangeset mirrors the JSON shape of one array element of the `/update`
// request body: {inserts: Triple[], deletes: Triple[]}.
type wireChangeset struct {
	Inserts []wireTriple `json:"inserts"`
	Deletes []wireTriple `json:"deletes"`
}

func decodeChangesets(wire []wireChangeset) ([]delta.Changeset, error) {
	out := make([]delta.Changeset, 0, len(wire))
	for _, w := range wire {
		cs := delta.Changeset{}
		for _, t := range w.Inserts {
			triple, err := t.toTriple(true)
			if err != nil {
				return nil, err
			}
			cs.Inserts = append(cs.Inserts, triple)
		}
		for _, t := range w.Deletes {
			triple, err := t.toTriple(false)
			if err != nil {
				return nil, err
			}
			cs.Deletes = append(cs.Deletes, triple)
		}
		out = append(out, cs)
	}
	return out, nil
}

// wireAuthGroup mirrors the JSON shape of one entry of the
// MU-AUTH-ALLOWED-GROUPS header: {name, variables: string[]}.
type wireAuthGroup struct {
	Name      string   `json:"name"`
	Variables []string `json:"variables"`
}

func decodeAllowedGroups(groups []wireAuthGroup) model.AuthorizationGroupSet {
	if groups == nil {
		return nil
	}
	out := make(model.AuthorizationGroupSet, len(groups))
	for i, g := range groups {
		out[i] = model.AuthorizationGroup{Name: g.Name, Variables: g.Variables}
	}
	return out
}
