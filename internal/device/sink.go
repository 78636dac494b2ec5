package device

import (
	"context"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/traffic-light/internal/logger"
)

// Sink sends a single command to the device.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, cmd Command) error
}

// LogSink only logs commands. It backs the "log" driver for dry runs.
type LogSink struct{}

// NewLogSink creates a sink that writes commands to the log.
func NewLogSink() *LogSink {
	return new(LogSink)
}

// Send logs the command at info level, whatever the global level, and
// always succeeds.
func (*LogSink) Send(ctx context.Context, cmd Command) error {
	logger.FromContext(ctx).
		WithOptions(logger.WithLevel(zapcore.InfoLevel)).
		Infow("LED command", "led", cmd.Color, "state", cmd.StateParam())

	return nil
}
