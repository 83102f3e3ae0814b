package config

import (
	"os"
	"strconv"
)

// EnvConfig loads environment variable overrides for the §6 key set, upper
// cased with no prefix (this service has exactly one config document, so
// the teacher's optional prefix is unused here).
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a new environment configuration loader.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// ApplyEnvOverrides walks the scalar keys of the §6 key set LoadFile
// decodes, letting a non-empty environment variable win over the file's
// value. The structured keys (eager_indexing_groups, ignored_allowed_groups,
// default_settings) and the type catalog have no environment equivalent and
// are always taken from the file.
func ApplyEnvOverrides(doc *Document) {
	env := NewEnvConfig("")

	doc.BatchSize = env.GetInt("BATCH_SIZE", doc.BatchSize)
	doc.MaxBatches = env.GetInt("MAX_BATCHES", doc.MaxBatches)
	doc.AutomaticIndexUpdates = env.GetBool("AUTOMATIC_INDEX_UPDATES", doc.AutomaticIndexUpdates)
	doc.AttachmentsPathBase = env.GetString("ATTACHMENTS_PATH_BASE", doc.AttachmentsPathBase)
	doc.PersistIndexes = env.GetBool("PERSIST_INDEXES", doc.PersistIndexes)
	doc.UpdateWaitIntervalMins = env.GetInt("UPDATE_WAIT_INTERVAL_MINUTES", doc.UpdateWaitIntervalMins)
	doc.NumberOfThreads = env.GetInt("NUMBER_OF_THREADS", doc.NumberOfThreads)
	doc.EnableRawDSLEndpoint = env.GetBool("ENABLE_RAW_DSL_ENDPOINT", doc.EnableRawDSLEndpoint)
	doc.DeltaBatchSize = env.GetInt("DELTA_BATCH_SIZE", doc.DeltaBatchSize)
}
