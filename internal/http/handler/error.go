package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"trackify/internal/http/middleware"
)

// errorPayload is the JSON error body: {"error": "<message>"}.
type errorPayload struct {
	Error string `json:"error"`
}

func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorPayload{Error: message})
}

// ErrorHandler returns the global Fiber error handler. It renders unmatched
// routes, wrong methods, oversized bodies and unexpected failures with the
// standard status text so internal details (file paths) never leak. It also
// runs for transport-level rejections that bypass the middleware chain, so
// it stamps the cross-origin headers itself.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		if status >= fiber.StatusInternalServerError {
			log.WithFields(logrus.Fields{
				"request_id": middleware.RequestIDFromCtx(c),
				"path":       c.Path(),
			}).WithError(err).Error("unhandled error")
		}

		middleware.SetCORSHeaders(c)
		return writeError(c, status, utils.StatusMessage(status))
	}
}
