package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/logger"
)

// Device drivers.
const (
	// DriverHTTP sends GET /led requests to the ESP32 board.
	DriverHTTP = "http"
	// DriverSerial writes command bytes to a USB tower light.
	DriverSerial = "serial"
	// DriverLog only logs commands.
	DriverLog = "log"
)

// Config holds the settings of the traffic light binaries.
type Config struct {
	// ServerAddress is the gRPC address the server listens on and the ctl dials.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the listen address of the web UI and HTTP API.
	HTTPAddress string `yaml:"http_addr"`
	// Device describes the traffic light hardware.
	Device Device `yaml:"device"`
	// Timeout is the duration for RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`
}

// Device holds the settings of the command sink.
type Device struct {
	// Driver selects the sink: http, serial or log.
	Driver string `yaml:"driver"`
	// Address is the device host or URL for the http driver.
	Address string `yaml:"address"`
	// SerialPort is the port name for the serial driver.
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the serial port speed.
	BaudRate int `yaml:"baud_rate"`
	// Timeout bounds a single device command.
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit caps commands per second; zero disables the cap.
	RateLimit float64 `yaml:"rate_limit"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "traffic-light-settings.yaml"

	// DefaultServerAddress is the default gRPC address.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultHTTPAddress is the default web UI address.
	DefaultHTTPAddress = ":8080"

	// DefaultDeviceAddress is the ESP32 board the lights are wired to.
	DefaultDeviceAddress = "192.168.5.5"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for an unsupported device driver.
	errUnknownDriver = errors.New("unknown device driver")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownLogFormat is returned for an unsupported log format.
	errUnknownLogFormat = errors.New("unknown log format")
	// errNegativeRateLimit is returned for a rate limit below zero.
	errNegativeRateLimit = errors.New("device rate limit must not be negative")
	// errSerialPortRequired is returned when the serial driver has no port.
	errSerialPortRequired = errors.New("serial port must be provided")
)

// Default returns the settings used when no file exists.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file at the default path (empty or DefaultConfigFilename)
// yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for formatting errors.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		settings.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress == "" {
		settings.HTTPAddress = DefaultHTTPAddress
	}

	if _, _, err := net.SplitHostPort(settings.HTTPAddress); err != nil {
		return fmt.Errorf("invalid http address: %w", err)
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	if settings.LogFormat == "" {
		settings.LogFormat = string(logger.FormatConsole)
	}

	if _, ok := logger.ParseFormat(settings.LogFormat); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogFormat, settings.LogFormat)
	}

	return validateDevice(&settings.Device)
}

// validateDevice fills device defaults and checks driver-specific fields.
func validateDevice(d *Device) error {
	if d.Driver == "" {
		d.Driver = DriverHTTP
	}

	if d.Timeout <= 0 {
		d.Timeout = device.DefaultCommandTimeout
	}

	if d.RateLimit < 0 {
		return errNegativeRateLimit
	}

	switch d.Driver {
	case DriverHTTP:
		if d.Address == "" {
			d.Address = DefaultDeviceAddress
		}

		if _, err := device.ParseDeviceURL(d.Address); err != nil {
			return fmt.Errorf("invalid device address: %w", err)
		}
	case DriverSerial:
		if d.BaudRate <= 0 {
			d.BaudRate = device.DefaultBaudRate
		}

		if d.SerialPort == "" {
			return fmt.Errorf("serial driver: %w", errSerialPortRequired)
		}
	case DriverLog:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, d.Driver)
	}

	return nil
}
