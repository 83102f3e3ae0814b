// Package config loads and validates the JSON configuration document that
// drives process boot (§6): batching and eager-build knobs, the type
// catalog, and the handful of operational toggles layered with environment
// overrides. The two-layer composition (file, then env overrides) and the
// Validator shape are grounded on the teacher's config.EnvConfig/Validator
// pair, trimmed to the pieces this service needs rather than the teacher's
// full ServerConfig/DatabaseConfig/... catalog.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evalgo/semindex/model"
)

// Document is the fully decoded, not-yet-env-overridden configuration (§6
// "Config file").
type Document struct {
	BatchSize               int                          `json:"batch_size"`
	MaxBatches              int                          `json:"max_batches"`
	AutomaticIndexUpdates   bool                         `json:"automatic_index_updates"`
	EagerIndexingGroups     []model.AuthorizationGroupSet `json:"eager_indexing_groups"`
	IgnoredAllowedGroups    []string                     `json:"ignored_allowed_groups"`
	AttachmentsPathBase     string                       `json:"attachments_path_base"`
	PersistIndexes          bool                         `json:"persist_indexes"`
	DefaultSettings         map[string]interface{}       `json:"default_settings"`
	UpdateWaitIntervalMins  int                          `json:"update_wait_interval_minutes"`
	NumberOfThreads         int                          `json:"number_of_threads"`
	EnableRawDSLEndpoint    bool                         `json:"enable_raw_dsl_endpoint"`
	DeltaBatchSize          int                          `json:"delta_batch_size"`

	// Types is decoded from the file's types[] object (name -> TypeDoc) into
	// ready-to-use TypeDefinitions, with every property path string parsed
	// into a model.Path once, here, never re-parsed at query time (Design
	// Note: "dynamically typed graphs of triples").
	Types map[string]*model.TypeDefinition `json:"-"`
}

// rawDocument mirrors Document's JSON shape before type-catalog conversion.
type rawDocument struct {
	BatchSize              int                          `json:"batch_size"`
	MaxBatches             int                          `json:"max_batches"`
	AutomaticIndexUpdates  bool                         `json:"automatic_index_updates"`
	EagerIndexingGroups    []model.AuthorizationGroupSet `json:"eager_indexing_groups"`
	IgnoredAllowedGroups   []string                     `json:"ignored_allowed_groups"`
	AttachmentsPathBase    string                       `json:"attachments_path_base"`
	PersistIndexes         bool                         `json:"persist_indexes"`
	DefaultSettings        map[string]interface{}       `json:"default_settings"`
	UpdateWaitIntervalMins int                          `json:"update_wait_interval_minutes"`
	NumberOfThreads        int                          `json:"number_of_threads"`
	EnableRawDSLEndpoint   bool                         `json:"enable_raw_dsl_endpoint"`
	DeltaBatchSize         int                          `json:"delta_batch_size"`
	Types                  map[string]typeDoc           `json:"types"`
}

type propertyDoc struct {
	Path          []string               `json:"path"`
	Kind          string                 `json:"kind"`
	RDFType       string                 `json:"rdfType,omitempty"`
	SubProperties map[string]propertyDoc `json:"subProperties,omitempty"`
	Pipeline      string                 `json:"pipeline,omitempty"`
}

type typeDoc struct {
	OnPath      string                 `json:"onPath"`
	RDFTypes    []string               `json:"rdfTypes"`
	Properties  map[string]propertyDoc `json:"properties"`
	CompositeOf []string               `json:"compositeOf,omitempty"`
}

// LoadFile reads and decodes the JSON configuration document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}

	types := make(map[string]*model.TypeDefinition, len(raw.Types))
	for name, td := range raw.Types {
		def, err := buildTypeDefinition(name, td)
		if err != nil {
			return nil, fmt.Errorf("config.LoadFile: type %q: %w", name, err)
		}
		types[name] = def
	}

	return &Document{
		BatchSize:              raw.BatchSize,
		MaxBatches:             raw.MaxBatches,
		AutomaticIndexUpdates:  raw.AutomaticIndexUpdates,
		EagerIndexingGroups:    raw.EagerIndexingGroups,
		IgnoredAllowedGroups:   raw.IgnoredAllowedGroups,
		AttachmentsPathBase:    raw.AttachmentsPathBase,
		PersistIndexes:         raw.PersistIndexes,
		DefaultSettings:        raw.DefaultSettings,
		UpdateWaitIntervalMins: raw.UpdateWaitIntervalMins,
		NumberOfThreads:        raw.NumberOfThreads,
		EnableRawDSLEndpoint:   raw.EnableRawDSLEndpoint,
		DeltaBatchSize:         raw.DeltaBatchSize,
		Types:                  types,
	}, nil
}

func buildTypeDefinition(name string, td typeDoc) (*model.TypeDefinition, error) {
	props := make([]model.PropertyDefinition, 0, len(td.Properties))
	for propName, pd := range td.Properties {
		prop, err := buildPropertyDefinition(propName, pd)
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	return &model.TypeDefinition{
		Name:        name,
		OnPath:      td.OnPath,
		RDFTypes:    td.RDFTypes,
		Properties:  props,
		CompositeOf: td.CompositeOf,
	}, nil
}

func buildPropertyDefinition(name string, pd propertyDoc) (model.PropertyDefinition, error) {
	path, err := model.ParsePath(pd.Path)
	if err != nil {
		return model.PropertyDefinition{}, fmt.Errorf("property %q: %w", name, err)
	}

	sub := make([]model.PropertyDefinition, 0, len(pd.SubProperties))
	for subName, subDoc := range pd.SubProperties {
		s, err := buildPropertyDefinition(subName, subDoc)
		if err != nil {
			return model.PropertyDefinition{}, err
		}
		sub = append(sub, s)
	}

	return model.PropertyDefinition{
		Name:          name,
		Path:          path,
		Kind:          model.PropertyKind(pd.Kind),
		RDFType:       pd.RDFType,
		SubProperties: sub,
		Pipeline:      pd.Pipeline,
	}, nil
}
