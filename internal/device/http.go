package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// LEDPath is the device endpoint that switches one LED.
	LEDPath = "/led"

	// defaultHTTPTimeout bounds a single request to the device.
	defaultHTTPTimeout = 5 * time.Second

	// maxDrainBytes limits how much of a response body is read before closing.
	maxDrainBytes = 4 << 10
)

// errAddressRequired is returned when no device address is configured.
var errAddressRequired = errors.New("device address must be provided")

// HTTPSink sends commands as GET /led?led=<color>&state=<on|off>.
type HTTPSink struct {
	// base is the device root URL.
	base *url.URL
	// client performs the requests.
	client *http.Client
	// limiter throttles outgoing commands; nil disables throttling.
	limiter *rate.Limiter
}

// HTTPOption configures an HTTPSink.
type HTTPOption func(*HTTPSink)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRequestTimeout sets the per-request timeout of the default client.
func WithRequestTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPSink) {
		if timeout > 0 {
			s.client.Timeout = timeout
		}
	}
}

// WithRateLimit allows at most perSecond commands per second with the given burst.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(s *HTTPSink) {
		if perSecond <= 0 {
			return
		}

		if burst < 1 {
			burst = 1
		}

		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewHTTPSink creates a sink for the device at address.
// The address may be a bare host ("192.168.5.5"), host:port, or a full URL.
func NewHTTPSink(address string, opts ...HTTPOption) (*HTTPSink, error) {
	base, err := ParseDeviceURL(address)
	if err != nil {
		return nil, err
	}

	s := &HTTPSink{
		base:   base,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// ParseDeviceURL normalizes a device address into a root URL.
func ParseDeviceURL(address string) (*url.URL, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errAddressRequired
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse device address: %w", err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("device address %q has no host: %w", address, errAddressRequired)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""

	return u, nil
}

// URL returns the request URL for a command.
func (s *HTTPSink) URL(cmd Command) string {
	u := *s.base
	u.Path += LEDPath

	q := url.Values{}
	q.Set("led", string(cmd.Color))
	q.Set("state", cmd.StateParam())
	u.RawQuery = q.Encode()

	return u.String()
}

// Send issues the GET request. The response body is not interpreted;
// only transport errors and non-2xx statuses fail.
func (s *HTTPSink) Send(ctx context.Context, cmd Command) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(cmd), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
