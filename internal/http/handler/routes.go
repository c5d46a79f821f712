package handler

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"trackify/internal/http/middleware"
	"trackify/internal/service"
)

// Deps carries what the routes need.
type Deps struct {
	AppRoot string
	Uploads service.UploadService
	Log     logrus.FieldLogger
	// Ledger registers GET /uploads.
	Ledger bool
	// Metrics, when set, is exposed on /metrics.
	Metrics prometheus.Gatherer
}

// RegisterRoutes attaches every HTTP route to app.
func RegisterRoutes(app *fiber.App, d Deps) {
	RegisterPages(app, d.AppRoot)

	app.Post("/upload-file", UploadFile(d.Uploads, d.Log))
	app.Get(service.PublicPrefix+":name", ServeUpload(d.Uploads))
	if d.Ledger {
		app.Get("/uploads", ListUploads(d.Uploads))
	}

	app.Get("/health", Health())
	app.Get("/healthz", LivenessProbe())

	if d.Metrics != nil {
		app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}

	app.Static("/static", filepath.Join(d.AppRoot, "static"))

	// Registered last so it only sees requests no route claimed.
	app.Use(Preflight())
}

// Preflight answers OPTIONS for paths served under another method with 204.
// Unknown paths keep their 404.
func Preflight() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodOptions {
			return err
		}
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusMethodNotAllowed {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return err
	}
}
