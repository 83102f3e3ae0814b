// Command semindexd runs the authorization-aware search index maintainer:
// it consumes RDF delta notifications, keeps per-type, per-authorization-group
// search indexes synchronized with the backing RDF store, and serves the
// delta ingestion and index-status HTTP surface described by the root
// command's configuration document.
package main

import (
	"github.com/evalgo/semindex/cmd/semindexd/cli"
	"github.com/evalgo/semindex/telemetry"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		telemetry.Logger.Fatal(err)
	}
}
