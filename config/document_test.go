package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evalgo/semindex/model"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "batch_size": 50,
  "max_batches": 10,
  "automatic_index_updates": true,
  "eager_indexing_groups": [[{"name": "public", "variables": []}]],
  "ignored_allowed_groups": ["internal-debug"],
  "attachments_path_base": "/mnt/attachments",
  "persist_indexes": true,
  "update_wait_interval_minutes": 1,
  "number_of_threads": 4,
  "enable_raw_dsl_endpoint": false,
  "delta_batch_size": 100,
  "types": {
    "person": {
      "onPath": "persons",
      "rdfTypes": ["http://example.org/vocab/Person"],
      "properties": {
        "title": {
          "path": ["http://example.org/vocab/title"],
          "kind": "simple"
        },
        "org": {
          "path": ["http://example.org/vocab/org", "^http://example.org/vocab/ownedBy"],
          "kind": "nested",
          "rdfType": "http://example.org/vocab/Organization",
          "subProperties": {
            "name": {
              "path": ["http://example.org/vocab/name"],
              "kind": "simple"
            }
          }
        }
      }
    }
  }
}`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))
	return path
}

func TestLoadFileDecodesScalarFields(t *testing.T) {
	doc, err := LoadFile(writeSample(t))
	require.NoError(t, err)

	require.Equal(t, 50, doc.BatchSize)
	require.Equal(t, 10, doc.MaxBatches)
	require.True(t, doc.AutomaticIndexUpdates)
	require.Equal(t, []string{"internal-debug"}, doc.IgnoredAllowedGroups)
	require.Equal(t, "/mnt/attachments", doc.AttachmentsPathBase)
	require.True(t, doc.PersistIndexes)
	require.Equal(t, 100, doc.DeltaBatchSize)
	require.Len(t, doc.EagerIndexingGroups, 1)
	require.Equal(t, "public", doc.EagerIndexingGroups[0][0].Name)
}

func TestLoadFileParsesPropertyPathsIntoModelPath(t *testing.T) {
	doc, err := LoadFile(writeSample(t))
	require.NoError(t, err)

	person, ok := doc.Types["person"]
	require.True(t, ok)
	require.Equal(t, "persons", person.OnPath)
	require.Equal(t, []string{"http://example.org/vocab/Person"}, person.RDFTypes)

	var org *model.PropertyDefinition
	for i := range person.Properties {
		if person.Properties[i].Name == "org" {
			org = &person.Properties[i]
		}
	}
	require.NotNil(t, org)
	require.Equal(t, model.KindNested, org.Kind)
	require.Len(t, org.Path, 2)
	require.False(t, org.Path[0].Inverse)
	require.Equal(t, "http://example.org/vocab/org", org.Path[0].Predicate)
	require.True(t, org.Path[1].Inverse)
	require.Equal(t, "http://example.org/vocab/ownedBy", org.Path[1].Predicate)
	require.Len(t, org.SubProperties, 1)
	require.Equal(t, "name", org.SubProperties[0].Name)
}

func TestLoadFileRejectsMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadFileRejectsEmptyPropertyPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	bad := `{"types": {"person": {"rdfTypes": ["http://example.org/vocab/Person"], "properties": {"title": {"path": [], "kind": "simple"}}}}}`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}
