package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tarm/serial"

	"github.com/oshokin/traffic-light/internal/domain/light"
)

// Tower light command bytes.
const (
	cmdRedOn     byte = 0x11
	cmdYellowOn  byte = 0x12
	cmdGreenOn   byte = 0x14
	cmdRedOff    byte = 0x21
	cmdYellowOff byte = 0x22
	cmdGreenOff  byte = 0x24
)

// DefaultBaudRate is the usual speed of USB tower lights.
const DefaultBaudRate = 9600

var (
	// errSerialPortRequired is returned when the serial port name is empty.
	errSerialPortRequired = errors.New("serial port must be provided")
	// errUnsupportedColor is returned for a color without a command byte.
	errUnsupportedColor = errors.New("unsupported color")
)

// PortOpener opens the serial device. It is replaceable for tests.
type PortOpener func(name string, baud int) (io.WriteCloser, error)

// openSerialPort opens a real serial port.
//
//nolint:ireturn,nolintlint // The opener is an abstraction point over *serial.Port.
func openSerialPort(name string, baud int) (io.WriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: name,
		Baud: baud,
	})
	if err != nil {
		return nil, err
	}

	return port, nil
}

// SerialSink drives a USB tower light with single-byte commands.
// The port is opened lazily and reopened after a write failure.
type SerialSink struct {
	// name is the serial port path, e.g. /dev/ttyUSB0.
	name string
	// baud is the port speed.
	baud int
	// open creates the port connection.
	open PortOpener

	// mu serializes writes; the port is not safe for concurrent use.
	mu sync.Mutex
	// port is the open connection or nil.
	port io.WriteCloser
}

// NewSerialSink creates a sink for the tower light at the given port.
func NewSerialSink(name string, baud int, opener PortOpener) (*SerialSink, error) {
	if name == "" {
		return nil, errSerialPortRequired
	}

	if baud <= 0 {
		baud = DefaultBaudRate
	}

	if opener == nil {
		opener = openSerialPort
	}

	return &SerialSink{
		name: name,
		baud: baud,
		open: opener,
	}, nil
}

// commandByte maps a command to its tower light byte.
func commandByte(cmd Command) (byte, error) {
	switch {
	case cmd.Color == light.Red && cmd.On:
		return cmdRedOn, nil
	case cmd.Color == light.Red:
		return cmdRedOff, nil
	case cmd.Color == light.Yellow && cmd.On:
		return cmdYellowOn, nil
	case cmd.Color == light.Yellow:
		return cmdYellowOff, nil
	case cmd.Color == light.Green && cmd.On:
		return cmdGreenOn, nil
	case cmd.Color == light.Green:
		return cmdGreenOff, nil
	default:
		return 0, fmt.Errorf("%w: %s", errUnsupportedColor, cmd.Color)
	}
}

// Send writes the command byte to the port.
func (s *SerialSink) Send(ctx context.Context, cmd Command) error {
	b, err := commandByte(cmd)
	if err != nil {
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		port, err := s.open(s.name, s.baud)
		if err != nil {
			return fmt.Errorf("open serial port %s: %w", s.name, err)
		}

		s.port = port
	}

	if _, err = s.port.Write([]byte{b}); err != nil {
		_ = s.port.Close()
		s.port = nil

		return fmt.Errorf("write serial command: %w", err)
	}

	return nil
}

// Close releases the serial port.
func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil

	return err
}
