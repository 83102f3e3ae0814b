// Package cli provides the command-line interface and process bootstrap for
// the index maintenance daemon. It orchestrates the complete application
// lifecycle: configuration loading, pool and service construction, HTTP
// server setup, and graceful shutdown handling.
//
// The package implements a production-ready daemon with:
//   - Configuration via a JSON document, environment variables, and
//     command-line flags, in that increasing order of precedence
//   - RDF store and search engine connection pooling
//   - Delta-driven index maintenance with a debounced update queue
//   - An optional Redis-backed coalescing mirror for multi-instance setups
//   - An optional Postgres-backed audit log of index lifecycle events
//   - HTTP endpoints for delta ingestion, index status, and health
//   - Graceful shutdown with proper resource cleanup
//
// Architecture Overview:
//
//	CLI -> Configuration -> Pools -> Registry/Builder -> Delta/UpdateQueue -> HTTP Server
//	                                        |
//	                                  Postgres audit log
//
// The daemon is designed for containerized deployment with 12-factor app
// principles, supporting configuration via environment variables and an
// external config document mounted into the container.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evalgo/semindex/builder"
	"github.com/evalgo/semindex/config"
	"github.com/evalgo/semindex/delta"
	"github.com/evalgo/semindex/extractor"
	"github.com/evalgo/semindex/indexmanager"
	"github.com/evalgo/semindex/metrics"
	"github.com/evalgo/semindex/rdf"
	"github.com/evalgo/semindex/registry"
	"github.com/evalgo/semindex/search"
	"github.com/evalgo/semindex/telemetry"
	"github.com/evalgo/semindex/transport/httpapi"
	"github.com/evalgo/semindex/updatequeue"
)

// cfgFile holds the path to the config document specified via command-line
// flag. When empty, initConfig falls back to searching for
// .semindex.yaml in the home and current directories (for the viper-bound
// operational flags below); the type catalog and batching document itself
// (§6) is always loaded explicitly via --config-document / SEMINDEX_CONFIG_DOCUMENT.
var cfgFile string

// RootCmd defines the main CLI command for the index maintenance daemon.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Viper configuration file values
//  4. Default values
//
// Example Usage:
//
//	# Start with an explicit config document and defaults for everything else
//	semindexd --config-document /etc/semindex/config.json
//
//	# Start with environment variables
//	export RDF_URL=http://localhost:8890/sparql
//	export SEARCH_URL=http://localhost:9200
//	export SEMINDEX_CONFIG_DOCUMENT=/etc/semindex/config.json
//	semindexd
var RootCmd = &cobra.Command{
	Use:   "semindexd",
	Short: "authorization-aware search index maintainer",
	Long: `semindexd

A delta-driven index maintenance daemon that keeps full-text search indexes
synchronized with an RDF graph database, scoped per authorization group.

The daemon:
- Accepts RDF delta notifications over HTTP and dispatches affected subjects
  to a debounced update queue
- Builds and upserts search documents per type and authorization group
- Serves index-status lookups scoped to the caller's authorization groups
- Optionally forwards a raw search-engine query DSL when explicitly enabled

Configuration is provided via a JSON config document (--config-document),
command-line flags, and environment variables with automatic precedence
handling.`,
	Run: runServer,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "viper config file for operational flags (default is $HOME/.semindex.yaml)")

	RootCmd.PersistentFlags().String("config-document", "", "path to the JSON configuration document (§6 key table)")
	RootCmd.PersistentFlags().String("port", "8080", "HTTP server port")

	RootCmd.PersistentFlags().String("rdf-url", "", "RDF store SPARQL endpoint base URL")
	RootCmd.PersistentFlags().String("rdf-repository", "", "RDF store repository/dataset name")
	RootCmd.PersistentFlags().String("rdf-username", "", "RDF store username")
	RootCmd.PersistentFlags().String("rdf-password", "", "RDF store password")
	RootCmd.PersistentFlags().Int("rdf-pool-size", 4, "number of pooled RDF store connections")

	RootCmd.PersistentFlags().String("search-url", "", "search engine base URL")
	RootCmd.PersistentFlags().String("search-username", "", "search engine username")
	RootCmd.PersistentFlags().String("search-password", "", "search engine password")
	RootCmd.PersistentFlags().Int("search-pool-size", 8, "number of pooled search engine connections")

	RootCmd.PersistentFlags().String("extractor-base-url", "", "attachment extraction service base URL")
	RootCmd.PersistentFlags().String("extractor-cache-dir", "", "local cache directory for extracted attachment text")
	RootCmd.PersistentFlags().Int64("extractor-max-file-size", extractor.DefaultMaxFileSize, "maximum attachment size fetched for extraction, in bytes")

	RootCmd.PersistentFlags().String("database-url", "", "Postgres URL for the optional index event audit log")
	RootCmd.PersistentFlags().String("redis-url", "", "Redis URL for the optional multi-instance update queue mirror")

	RootCmd.PersistentFlags().String("jwt-secret", "", "signing key for the optional raw DSL passthrough endpoint")

	viper.BindPFlag("config_document", RootCmd.PersistentFlags().Lookup("config-document"))
	viper.BindPFlag("port", RootCmd.PersistentFlags().Lookup("port"))

	viper.BindPFlag("rdf.url", RootCmd.PersistentFlags().Lookup("rdf-url"))
	viper.BindPFlag("rdf.repository", RootCmd.PersistentFlags().Lookup("rdf-repository"))
	viper.BindPFlag("rdf.username", RootCmd.PersistentFlags().Lookup("rdf-username"))
	viper.BindPFlag("rdf.password", RootCmd.PersistentFlags().Lookup("rdf-password"))
	viper.BindPFlag("rdf.pool_size", RootCmd.PersistentFlags().Lookup("rdf-pool-size"))

	viper.BindPFlag("search.url", RootCmd.PersistentFlags().Lookup("search-url"))
	viper.BindPFlag("search.username", RootCmd.PersistentFlags().Lookup("search-username"))
	viper.BindPFlag("search.password", RootCmd.PersistentFlags().Lookup("search-password"))
	viper.BindPFlag("search.pool_size", RootCmd.PersistentFlags().Lookup("search-pool-size"))

	viper.BindPFlag("extractor.base_url", RootCmd.PersistentFlags().Lookup("extractor-base-url"))
	viper.BindPFlag("extractor.cache_dir", RootCmd.PersistentFlags().Lookup("extractor-cache-dir"))
	viper.BindPFlag("extractor.max_file_size", RootCmd.PersistentFlags().Lookup("extractor-max-file-size"))

	viper.BindPFlag("database.url", RootCmd.PersistentFlags().Lookup("database-url"))
	viper.BindPFlag("redis.url", RootCmd.PersistentFlags().Lookup("redis-url"))

	viper.BindPFlag("jwt.secret", RootCmd.PersistentFlags().Lookup("jwt-secret"))
}

// initConfig initializes Viper's operational-flag layer. The config
// document itself (type catalog, batching knobs) is loaded separately by
// config.LoadFile in runServer, since it has its own nested shape and its
// own env-override layer (config.ApplyEnvOverrides).
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".semindex")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.BindEnv("config_document", "SEMINDEX_CONFIG_DOCUMENT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		telemetry.Component("cli").Infof("Using config file: %s", viper.ConfigFileUsed())
	}
}

// runServer builds every dependency named by the configuration document and
// the operational flags, starts the update pipeline and HTTP server, and
// blocks until the process receives SIGINT or SIGTERM.
//
// Startup Sequence:
//  1. Load and validate the JSON configuration document
//  2. Construct the RDF store pool, search engine pool, and attachment
//     extractor client
//  3. Construct the index registry, document builder, and optional audit
//     log recorder
//  4. Construct the update queue and delta handler and start their
//     background workers
//  5. Pre-build the eagerly-indexed authorization group combinations
//  6. Start the HTTP server
//  7. Wait for a shutdown signal and stop every component in reverse order
func runServer(cmd *cobra.Command, args []string) {
	log := telemetry.Component("cli")

	configDocPath := viper.GetString("config_document")
	if configDocPath == "" {
		log.Fatal("config-document is required")
	}

	doc, err := config.LoadFile(configDocPath)
	if err != nil {
		log.Fatalf("failed to load config document: %v", err)
	}
	config.ApplyEnvOverrides(doc)
	if err := config.ValidateDocument(doc); err != nil {
		log.Fatalf("invalid config document: %v", err)
	}

	rdfPool, err := rdf.NewPool(
		viper.GetInt("rdf.pool_size"),
		viper.GetString("rdf.url"),
		viper.GetString("rdf.repository"),
		viper.GetString("rdf.username"),
		viper.GetString("rdf.password"),
	)
	if err != nil {
		log.Fatalf("failed to construct RDF pool: %v", err)
	}

	searchPool, err := search.NewPool(
		viper.GetInt("search.pool_size"),
		viper.GetString("search.url"),
		viper.GetString("search.username"),
		viper.GetString("search.password"),
	)
	if err != nil {
		log.Fatalf("failed to construct search pool: %v", err)
	}

	extractorClient, err := extractor.New(
		viper.GetString("extractor.base_url"),
		viper.GetString("extractor.cache_dir"),
		viper.GetInt64("extractor.max_file_size"),
	)
	if err != nil {
		log.Fatalf("failed to construct attachment extractor: %v", err)
	}

	recorder, err := metrics.Open(viper.GetString("database.url"))
	if err != nil {
		log.Fatalf("failed to open audit log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New(rdfPool, registry.Config{
		PersistIndexes: doc.PersistIndexes,
		NamePrefix:     "semindex",
	})
	if doc.PersistIndexes {
		if err := reg.Load(ctx); err != nil {
			log.Fatalf("failed to load persisted registry state: %v", err)
		}
	}

	b := builder.New(rdfPool, extractorClient, doc.Types, builder.Config{
		AttachmentsPathBase: doc.AttachmentsPathBase,
	})

	var mirror updatequeue.Mirror
	if redisURL := viper.GetString("redis.url"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("invalid redis-url: %v", err)
		}
		mirror = updatequeue.NewRedisMirror(redis.NewClient(opts), "semindex:updatequeue:", time.Hour)
	}

	uq := updatequeue.New(b, reg, searchPool, updatequeue.Config{
		WaitInterval: time.Duration(doc.UpdateWaitIntervalMins) * time.Minute,
		WorkerCount:  doc.NumberOfThreads,
		Mirror:       mirror,
		Metrics:      recorder,
	})

	manager := indexmanager.New(reg, rdfPool, b, searchPool, doc.Types, indexmanager.Config{
		EagerGroups:     doc.EagerIndexingGroups,
		Metrics:         recorder,
		DefaultSettings: doc.DefaultSettings,
		BatchSize:       doc.BatchSize,
		MaxBatches:      doc.MaxBatches,
	})

	deltaHandler := delta.New(doc.Types, rdfPool, uq, manager, delta.Config{
		BatchSize:             doc.DeltaBatchSize,
		AutomaticIndexUpdates: doc.AutomaticIndexUpdates,
	})

	if err := uq.Start(ctx); err != nil {
		log.Fatalf("failed to start update queue: %v", err)
	}
	deltaHandler.Start(ctx)

	if len(doc.EagerIndexingGroups) > 0 {
		if err := manager.PreBuildEager(ctx); err != nil {
			log.Errorf("eager index pre-build failed: %v", err)
		}
	}

	server := httpapi.New(deltaHandler, manager, rdfPool, searchPool, httpapi.Config{
		EnableRawDSLEndpoint: doc.EnableRawDSLEndpoint,
		JWTSigningKey:        []byte(viper.GetString("jwt.secret")),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx, ":"+viper.GetString("port"))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutdown signal received")
		cancel()
		if err := <-serverErr; err != nil {
			log.Errorf("http server shutdown error: %v", err)
		}
	case err := <-serverErr:
		if err != nil {
			log.Errorf("http server exited: %v", err)
		}
		cancel()
	}

	deltaHandler.Stop()
	if err := uq.Stop(context.Background()); err != nil {
		log.Errorf("update queue shutdown error: %v", err)
	}
}
