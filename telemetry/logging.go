// Package telemetry provides the centralized logging infrastructure for the
// index maintenance service. It implements intelligent log output routing
// that automatically directs error-level messages to stderr while sending
// every other level to stdout, so containerized deployments can apply
// different handling (alerting vs. aggregation) to each stream.
//
// The logger is built on logrus for structured logging. Every package in
// this module logs through the package-level Logger rather than fmt or the
// standard log package, so that field conventions (component, subject,
// typeName, index, attempt) stay consistent across the delta, update-queue,
// document-builder, and index-manager call sites.
package telemetry

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// streamSplitter routes logrus output to stderr for error-level entries and
// stdout for everything else, by inspecting the formatted entry for the
// literal "level=error" marker logrus' default text formatter emits. The
// JSON formatter writes "level":"error" instead, which this check does not
// match, so with that formatter every entry goes to stdout.
type streamSplitter struct{}

func (streamSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the package-level logger every component should log through.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(streamSplitter{})
}

// Component returns a logger pre-populated with a "component" field,
// the convention used throughout this module to identify which pipeline
// stage emitted a given line (e.g. telemetry.Component("delta.dispatch")).
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
