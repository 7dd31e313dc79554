// Package logging provides the structured logger every compiler stage
// writes through: JSON lines to stdout, tagged with the run id so a
// multi-output batch's lines can be correlated.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger tagged with runID, used as the base entry
// every subsystem derives its own WithField calls from. Output is JSON to
// stdout; level is controlled by the LOG_LEVEL env var (default: info).
func New(runID string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stdout)

	levelStr := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("run_id", runID)
}

// WithStage tags log lines with the current state-machine stage (spec.md
// §4.10), so debug-mode output can show exactly where a run was when it
// produced a given line.
func WithStage(base *logrus.Entry, stage string) *logrus.Entry {
	return base.WithField("stage", stage)
}
