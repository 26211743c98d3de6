package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"backend-queueflex/internal/http/middleware"
	"backend-queueflex/internal/models"
)

// QueueService is the engine surface the queue routes use.
type QueueService interface {
	Join(ctx context.Context, caller models.Caller, req models.JoinRequest) (models.QueueEntry, error)
	Read(ctx context.Context, entryID string, caller models.Caller) (models.QueueEntry, error)
	List(ctx context.Context, caller models.Caller) ([]models.QueueEntry, error)
	ListForService(ctx context.Context, serviceID string, caller models.Caller) ([]models.QueueEntry, error)
	Update(ctx context.Context, entryID string, caller models.Caller, fields map[string]any) (models.QueueEntry, error)
	Remove(ctx context.Context, entryID string, caller models.Caller) error
	CallNext(ctx context.Context, serviceID string, caller models.Caller) (models.QueueEntry, error)
	Status(ctx context.Context, serviceID string, caller models.Caller) (models.QueueStatus, error)
	Recompute(serviceID string) []models.QueueEntry
}

// RejectionCounter records refused joins.
type RejectionCounter interface {
	JoinRejected(reason string)
}

type QueueHandler struct {
	queue      QueueService
	rejections RejectionCounter
}

// NewQueueHandler builds the queue routes. rejections may be nil.
func NewQueueHandler(q QueueService, rejections RejectionCounter) *QueueHandler {
	return &QueueHandler{queue: q, rejections: rejections}
}

/*
|--------------------------------------------------------------------------
| POST /queue/add, /queue/join
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) Join(c *fiber.Ctx) error {
	var req models.JoinRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	entry, err := h.queue.Join(c.UserContext(), middleware.CallerFrom(c), req)
	if err != nil {
		if h.rejections != nil {
			h.rejections.JoinRejected(rejectionReason(err))
		}
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "joined queue",
		"data":    entry,
	})
}

/*
|--------------------------------------------------------------------------
| GET /queue/get
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) List(c *fiber.Ctx) error {
	entries, err := h.queue.List(c.UserContext(), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
	})
}

/*
|--------------------------------------------------------------------------
| GET /queue/get/:id
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) Read(c *fiber.Ctx) error {
	entry, err := h.queue.Read(c.UserContext(), c.Params("id"), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

/*
|--------------------------------------------------------------------------
| GET /queue/service/:service_id
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) ListForService(c *fiber.Ctx) error {
	entries, err := h.queue.ListForService(c.UserContext(), c.Params("service_id"), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"total":   len(entries),
	})
}

/*
|--------------------------------------------------------------------------
| PUT /queue/update/:id
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) Update(c *fiber.Ctx) error {
	fields := map[string]any{}
	if err := c.BodyParser(&fields); err != nil {
		return badRequest(c, "invalid request body")
	}

	entry, err := h.queue.Update(c.UserContext(), c.Params("id"), middleware.CallerFrom(c), fields)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}

/*
|--------------------------------------------------------------------------
| DELETE /queue/delete/:id
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) Remove(c *fiber.Ctx) error {
	if err := h.queue.Remove(c.UserContext(), c.Params("id"), middleware.CallerFrom(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "queue entry deleted",
	})
}

/*
|--------------------------------------------------------------------------
| POST /queue/service/:service_id/next (operators)
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) CallNext(c *fiber.Ctx) error {
	entry, err := h.queue.CallNext(c.UserContext(), c.Params("service_id"), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "next entry called",
		"data":    entry,
	})
}

/*
|--------------------------------------------------------------------------
| GET /queue/service/:service_id/status
|--------------------------------------------------------------------------
*/
func (h *QueueHandler) Status(c *fiber.Ctx) error {
	status, err := h.queue.Status(c.UserContext(), c.Params("service_id"), middleware.CallerFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    status,
	})
}

// Recompute serves POST /queue/service/:service_id/recompute (operators).
func (h *QueueHandler) Recompute(c *fiber.Ctx) error {
	entries := h.queue.Recompute(c.Params("service_id"))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"total":   len(entries),
	})
}
