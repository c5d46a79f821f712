package handler

import "github.com/gofiber/fiber/v2"

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health is a liveness stub; it inspects no dependency.
//
// @Summary  Liveness check
// @Produce  json
// @Success  200 {object} healthResponse
// @Router   /health [get]
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(healthResponse{Status: "ok", Message: "Server is running"})
	}
}

// LivenessProbe answers 200 with an empty body for orchestrators.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
