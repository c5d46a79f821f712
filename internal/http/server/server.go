package server

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	handlers "trackify/internal/http/handler"
	"trackify/internal/http/middleware"
	"trackify/internal/service"
)

// Options configure the Fiber application.
type Options struct {
	AppRoot string
	// BodyLimit caps the request body; larger requests get 413 from the transport.
	BodyLimit int
	// Registry enables request metrics and /metrics when set.
	Registry *prometheus.Registry
	// Tracing adds otelfiber server spans.
	Tracing bool
	Ledger  bool
}

// New builds the Fiber app with global middleware and every route registered.
func New(opts Options, uploads service.UploadService, log logrus.FieldLogger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               "trackify",
		BodyLimit:             opts.BodyLimit,
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	if opts.Tracing {
		app.Use(otelfiber.Middleware())
	}
	app.Use(middleware.RequestID())
	app.Use(middleware.CORS())
	app.Use(middleware.Logger(log))

	deps := handlers.Deps{
		AppRoot: opts.AppRoot,
		Uploads: uploads,
		Log:     log,
		Ledger:  opts.Ledger,
	}
	if opts.Registry != nil {
		prom, err := middleware.NewPrometheusMiddleware(opts.Registry)
		if err != nil {
			return nil, err
		}
		app.Use(prom.Handler())
		deps.Metrics = opts.Registry
	}

	handlers.RegisterRoutes(app, deps)
	return app, nil
}
