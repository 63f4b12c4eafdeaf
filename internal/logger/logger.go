// Package logger configures the contextualized logger of the application.
package logger

import (
	"io"

	"github.com/bool64/ctxd"
	"github.com/bool64/zapctxd"
)

// NewLogger initiates a new contextualized zap logger. A nil output discards everything.
func NewLogger(cfg Config) *zapctxd.Logger {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	return zapctxd.New(zapctxd.Config{
		Level:   cfg.Level,
		DevMode: true,
		FieldNames: ctxd.FieldNames{
			Timestamp: "timestamp",
			Message:   "message",
		},
		Output:    cfg.Output,
		StripTime: cfg.StripTime,
	})
}
