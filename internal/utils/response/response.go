package response

import (
	"errors"

	apperrors "fxmatch/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// DomainError maps a *errors.DomainError to a JSON error response with its
// stable code; anything else becomes a generic bad request.
func DomainError(c *fiber.Ctx, err error) error {
	var derr *apperrors.DomainError
	if errors.As(err, &derr) {
		status := fiber.StatusBadRequest
		if derr == apperrors.ErrRequestNotFound {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{
			"error": derr.Message,
			"code":  derr.Code,
		})
	}
	return BadRequest(c, err.Error())
}
