package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"backend-queueflex/internal/auth"
	"backend-queueflex/internal/catalog"
	"backend-queueflex/internal/queue"
)

// statusOf maps a domain error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, queue.ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, queue.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, queue.ErrNotFound), errors.Is(err, catalog.ErrServiceNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, queue.ErrInvalidInput),
		errors.Is(err, queue.ErrInvalidTransition),
		errors.Is(err, queue.ErrQueueFull),
		errors.Is(err, queue.ErrServiceInactive):
		return fiber.StatusBadRequest
	case errors.Is(err, queue.ErrDuplicateID):
		return fiber.StatusConflict
	case errors.Is(err, queue.ErrServiceLookupFailed), errors.Is(err, catalog.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, auth.ErrBadCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrUserBanned):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// rejectionReason labels a failed join for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		return "full"
	case errors.Is(err, queue.ErrServiceInactive):
		return "inactive"
	case errors.Is(err, queue.ErrServiceNotFound):
		return "not_found"
	case errors.Is(err, queue.ErrServiceLookupFailed):
		return "lookup_failed"
	case errors.Is(err, queue.ErrInvalidInput):
		return "invalid"
	}
	return "other"
}
