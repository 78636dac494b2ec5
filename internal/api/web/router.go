package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/traffic-light/internal/device"
	"github.com/oshokin/traffic-light/internal/domain/light"
	"github.com/oshokin/traffic-light/internal/logger"
)

// DefaultControlRate is how many control requests one client may send per minute.
const DefaultControlRate = 120

//go:embed ui
var uiFiles embed.FS

// Service abstracts the operations behind the HTTP API.
type Service interface {
	SetColor(ctx context.Context, c light.Color) (*device.Batch, error)
	StartSequence(ctx context.Context) (string, *device.Batch, error)
	Stop(ctx context.Context) (*device.Batch, error)
	Snapshot() light.Snapshot
	Subscribe() (<-chan light.Snapshot, func())
}

// Options configures the router.
type Options struct {
	// ControlRate limits control requests per client and minute; zero uses the default.
	ControlRate int
}

// NewRouter builds the HTTP handler. Requests log through the logger in base.
func NewRouter(base context.Context, service Service, opts Options) http.Handler {
	if opts.ControlRate <= 0 {
		opts.ControlRate = DefaultControlRate
	}

	h := &handlers{service: service}

	static, err := fs.Sub(uiFiles, "ui")
	if err != nil {
		// The embedded directory is part of the binary.
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(base))
	r.Use(middleware.Recoverer)

	r.Handle("/", http.FileServer(http.FS(static)))
	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", newStateStream(service))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(opts.ControlRate, time.Minute))

			r.Post("/lights/{color}", h.setLight)
			r.Post("/sequence/start", h.startSequence)
			r.Post("/sequence/stop", h.stopSequence)
		})
	})

	return r
}

// requestLogger scopes a logger to each request and logs its outcome.
func requestLogger(base context.Context) func(http.Handler) http.Handler {
	baseLogger := logger.FromContext(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.ToContext(r.Context(), baseLogger)
			ctx = logger.WithKV(ctx, "request_id", middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.DebugKV(ctx, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"took", time.Since(started),
			)
		})
	}
}
