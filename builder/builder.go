// Package builder implements the Document Builder (§2 component 5, §4.3):
// given a root subject URI and a type definition, it materializes the
// indexable document by evaluating each property's path against the RDF
// store using a group-scoped client.
//
// The in-progress document's shape (known fields plus a dynamic map of
// property values) is grounded on the teacher's semantic.SemanticThing
// (struct fields plus a Properties bag); the per-property SELECT
// construction is grounded on the parameterized-query-construction idiom
// of the teacher's Neo4j repository, adapted from Cypher's $param binding
// to SPARQL's property-path and VALUES binding.
package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evalgo/semindex/apperr"
	"github.com/evalgo/semindex/extractor"
	"github.com/evalgo/semindex/model"
	"github.com/evalgo/semindex/rdf"
)

// Config controls filesystem and predicate conventions the builder needs
// beyond the type definitions themselves (§6 attachments_path_base).
type Config struct {
	AttachmentsPathBase    string
	AttachmentSchemePrefix string
	UUIDPredicate          string
}

// Builder materializes documents for a fixed set of type definitions.
type Builder struct {
	pool      *rdf.Pool
	extractor *extractor.Client
	types     map[string]*model.TypeDefinition
	cfg       Config
}

// New constructs a Builder over the given type definitions, keyed by name.
func New(pool *rdf.Pool, extractorClient *extractor.Client, types map[string]*model.TypeDefinition, cfg Config) *Builder {
	if cfg.UUIDPredicate == "" {
		cfg.UUIDPredicate = model.DefaultUUIDPredicate
	}
	return &Builder{pool: pool, extractor: extractorClient, types: types, cfg: cfg}
}

// BuildDocument materializes the document for subject under typeName,
// scoped to groups. A nil, nil return means the subject is no longer of
// the required type (§4.3, §9 open question 2): the caller (the Update
// Handler's worker) must treat that as a delete from the one index being
// built for.
func (b *Builder) BuildDocument(ctx context.Context, subject, typeName string, groups model.AuthorizationGroupSet) (map[string]interface{}, error) {
	typeDef, ok := b.types[typeName]
	if !ok {
		return nil, apperr.New(apperr.Config, "builder.BuildDocument", fmt.Errorf("unknown type %q", typeName))
	}

	if typeDef.IsComposite() {
		return b.buildComposite(ctx, subject, typeDef, groups)
	}

	client, release, err := b.pool.Acquire(ctx, rdf.ModeGroupScoped, groups)
	if err != nil {
		return nil, err
	}
	defer release()

	exists, err := b.checkType(ctx, client, subject, typeDef.RDFTypes)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	doc, err := b.buildProperties(ctx, client, subject, typeDef.Properties)
	if err != nil {
		return nil, err
	}

	uuidValue, err := b.queryUUID(ctx, client, subject)
	if err != nil {
		return nil, err
	}
	doc["uuid"] = uuidValue
	return doc, nil
}

func (b *Builder) buildComposite(ctx context.Context, subject string, typeDef *model.TypeDefinition, groups model.AuthorizationGroupSet) (map[string]interface{}, error) {
	var merged map[string]interface{}
	for _, constituent := range typeDef.CompositeOf {
		doc, err := b.BuildDocument(ctx, subject, constituent, groups)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		if merged == nil {
			merged = doc
			continue
		}
		result, err := smartMerge(merged, doc)
		if err != nil {
			return nil, err
		}
		m, ok := result.(map[string]interface{})
		if !ok {
			return nil, apperr.New(apperr.Config, "builder.buildComposite",
				fmt.Errorf("composite merge of %q produced non-document shape", typeDef.Name))
		}
		merged = m
	}
	return merged, nil
}

func (b *Builder) checkType(ctx context.Context, client *rdf.Client, subject string, rdfTypes []string) (bool, error) {
	values := make([]string, len(rdfTypes))
	for i, t := range rdfTypes {
		values[i] = fmt.Sprintf("<%s>", t)
	}
	query := fmt.Sprintf(`ASK { VALUES ?type { %s } <%s> a ?type }`, strings.Join(values, " "), subject)
	return client.Ask(ctx, query)
}

func (b *Builder) queryUUID(ctx context.Context, client *rdf.Client, subject string) (interface{}, error) {
	query := fmt.Sprintf(`SELECT ?v WHERE { <%s> <%s> ?v }`, subject, b.cfg.UUIDPredicate)
	bindings, err := client.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(bindings) == 0 {
		return nil, nil
	}
	return convertSimple(bindings[0]["v"]), nil
}

func (b *Builder) buildProperties(ctx context.Context, client *rdf.Client, subject string, properties []model.PropertyDefinition) (map[string]interface{}, error) {
	doc := make(map[string]interface{}, len(properties))
	for _, prop := range properties {
		value, err := b.buildProperty(ctx, client, subject, prop)
		if err != nil {
			return nil, err
		}
		doc[prop.Name] = value
	}
	return doc, nil
}

func (b *Builder) buildProperty(ctx context.Context, client *rdf.Client, subject string, prop model.PropertyDefinition) (interface{}, error) {
	query := fmt.Sprintf(`SELECT ?v WHERE { <%s> %s ?v }`, subject, prop.Path.SPARQLPath())
	bindings, err := client.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	switch prop.Kind {
	case model.KindSimple:
		values := make([]interface{}, 0, len(bindings))
		for _, binding := range bindings {
			values = append(values, convertSimple(binding["v"]))
		}
		return reduce(values), nil

	case model.KindLanguageString:
		byLang := make(map[string][]interface{})
		for _, binding := range bindings {
			v := binding["v"]
			lang := ""
			if v.Language != nil {
				lang = *v.Language
			}
			byLang[lang] = append(byLang[lang], v.Value)
		}
		out := make(map[string]interface{}, len(byLang))
		for lang, values := range byLang {
			out[lang] = reduce(values)
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil

	case model.KindNested:
		values := make([]interface{}, 0, len(bindings))
		for _, binding := range bindings {
			uri := binding["v"].Value
			sub, err := b.buildProperties(ctx, client, uri, prop.SubProperties)
			if err != nil {
				return nil, err
			}
			sub["uri"] = uri
			values = append(values, sub)
		}
		return reduce(values), nil

	case model.KindAttachment:
		values := make([]interface{}, 0, len(bindings))
		for _, binding := range bindings {
			uri := binding["v"].Value
			path := b.resolveAttachmentPath(uri)
			text, err := b.extractor.Extract(ctx, path)
			if err != nil {
				if apperr.Is(err, apperr.FileTooLarge) || apperr.Is(err, apperr.FileMissing) {
					values = append(values, map[string]interface{}{"uri": uri})
					continue
				}
				return nil, err
			}
			values = append(values, map[string]interface{}{"uri": uri, "content": text})
		}
		return reduce(values), nil

	default:
		return nil, apperr.New(apperr.Config, "builder.buildProperty", fmt.Errorf("invalid property kind %q", prop.Kind))
	}
}

// resolveAttachmentPath strips the configured scheme prefix from a bound
// attachment URI and joins the remainder onto attachments_path_base
// (§4.3).
func (b *Builder) resolveAttachmentPath(uri string) string {
	rel := strings.TrimPrefix(uri, b.cfg.AttachmentSchemePrefix)
	return filepath.Join(b.cfg.AttachmentsPathBase, rel)
}
