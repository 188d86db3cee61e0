// Package grbl streams commands to a Grbl CNC controller over a serial link,
// pacing them against the controller's receive buffer.
package grbl

import (
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultBufferSize is the receive buffer size of a stock Grbl build,
	// less a little headroom.
	DefaultBufferSize = 120

	DefaultPollInterval = 200 * time.Millisecond
)

// Config configures an Engine or Session.
type Config struct {
	// BufferSize is the controller receive buffer capacity in bytes.
	BufferSize int

	// PollInterval is the status query period. Negative disables polling.
	PollInterval time.Duration

	Sink   EventSink
	Logger *slog.Logger

	// Diagnostics, if set, is called with every line that matched no
	// known message shape.
	Diagnostics func(line string)

	// Classifier overrides the message recognizers.
	Classifier Classifier
}

func (cfg Config) withDefaults() Config {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}
