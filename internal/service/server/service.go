package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/oshokin/traffic-light/internal/config"
	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/logger"
	"github.com/oshokin/traffic-light/internal/sequencer"
)

// errUnsupportedDriver is returned for a driver newSink cannot build.
var errUnsupportedDriver = errors.New("unsupported device driver")

// stack bundles the device command path and the sequencer driving it.
type stack struct {
	// sink delivers single commands to the hardware.
	sink device.Sink
	// dispatcher fans each transition out into three commands.
	dispatcher *device.Dispatcher
	// sequencer owns the light state.
	sequencer *sequencer.Sequencer
}

// newStack builds the sink selected by settings and wires a sequencer to it.
func newStack(ctx context.Context, settings config.Device) (*stack, error) {
	sink, err := newSink(settings)
	if err != nil {
		return nil, err
	}

	dispatcher := device.NewDispatcher(sink, device.WithCommandTimeout(settings.Timeout))

	logger.InfoKV(ctx, "Device sink ready",
		"driver", settings.Driver,
		"address", settings.Address,
		"serial_port", settings.SerialPort,
		"command_timeout", settings.Timeout.String(),
	)

	return &stack{
		sink:       sink,
		dispatcher: dispatcher,
		sequencer:  sequencer.New(dispatcher),
	}, nil
}

// newSink creates the command sink for the configured driver.
func newSink(settings config.Device) (device.Sink, error) {
	switch settings.Driver {
	case config.DriverHTTP:
		sink, err := device.NewHTTPSink(settings.Address,
			device.WithRequestTimeout(settings.Timeout),
			device.WithRateLimit(settings.RateLimit, 1),
		)
		if err != nil {
			return nil, fmt.Errorf("create http sink: %w", err)
		}

		return sink, nil
	case config.DriverSerial:
		sink, err := device.NewSerialSink(settings.SerialPort, settings.BaudRate, nil)
		if err != nil {
			return nil, fmt.Errorf("create serial sink: %w", err)
		}

		return sink, nil
	case config.DriverLog:
		return device.NewLogSink(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedDriver, settings.Driver)
	}
}

// close stops the sequencer, waits for in-flight commands and releases the sink.
func (s *stack) close(ctx context.Context) {
	s.sequencer.Close(ctx)
	s.dispatcher.Close()

	closer, ok := s.sink.(io.Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		logger.WarnKV(ctx, "Failed to close device sink", "error", err)
	}
}
