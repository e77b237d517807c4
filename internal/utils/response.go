package utils

import "github.com/gofiber/fiber/v2"

// SuccessResponse sends the uniform success envelope. The status defaults
// to 200 unless an override is given.
func SuccessResponse(c *fiber.Ctx, data any, message string, code ...int) error {
	status := fiber.StatusOK
	if len(code) > 0 {
		status = code[0]
	}

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// ErrorResponse sends the uniform error envelope. An explicit code
// overrides the APIError's own status for this response only; the shared
// error values are never mutated.
func ErrorResponse(c *fiber.Ctx, apiErr *APIError, code ...int) error {
	status := apiErr.Status
	if len(code) > 0 {
		status = code[0]
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   apiErr,
	})
}
