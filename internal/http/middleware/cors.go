package middleware

import "github.com/gofiber/fiber/v2"

const (
	allowOrigin  = "*"
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type"
)

// SetCORSHeaders stamps the fixed cross-origin headers on the response.
// The global error handler calls it too, so error responses carry them.
func SetCORSHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, allowOrigin)
	c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
}

// CORS applies the cross-origin headers after the downstream handler ran,
// so handlers that rewrite the response (SendFile) cannot drop them.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		SetCORSHeaders(c)
		return err
	}
}
