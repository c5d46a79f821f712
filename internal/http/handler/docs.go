package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"trackify/docs"
)

// RegisterDocs mounts the Swagger UI at /swagger/*. The advertised host and
// schemes are fixed here, before any request can read them; empty values
// make the UI call whichever host served it.
func RegisterDocs(app fiber.Router, host string, schemes []string) {
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = schemes
	app.Get("/swagger/*", swagger.HandlerDefault)
}
