package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
)

// TestLogSink_LogsAboveConfiguredLevel keeps dry-run commands visible at warn level.
func TestLogSink_LogsAboveConfiguredLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	require.NoError(t, NewLogSink().Send(ctx, Command{Color: light.Yellow, On: true}))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "LED command", entries[0].Message)
	require.Equal(t, "on", entries[0].ContextMap()["state"])
}
