package handler

import (
	"github.com/gofiber/fiber/v2"

	"backend-queueflex/internal/catalog"
	"backend-queueflex/internal/models"
)

// WaitingCounter reports live queue lengths.
type WaitingCounter interface {
	WaitingCount(serviceID string) int
}

type ServiceHandler struct {
	catalog catalog.Catalog
	counter WaitingCounter
}

func NewServiceHandler(cat catalog.Catalog, counter WaitingCounter) *ServiceHandler {
	return &ServiceHandler{catalog: cat, counter: counter}
}

func (h *ServiceHandler) withCount(svc models.ServiceDescriptor) models.ServiceWithCount {
	count := h.counter.WaitingCount(svc.ServiceID)
	remaining := svc.MaxCapacity - count
	if remaining < 0 {
		remaining = 0
	}
	return models.ServiceWithCount{
		ServiceDescriptor: svc,
		CurrentQueueCount: count,
		RemainingQuota:    remaining,
	}
}

// GetAllServices - active services with their live queue counts
func (h *ServiceHandler) GetAllServices(c *fiber.Ctx) error {
	services, err := h.catalog.ListServices(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	data := make([]models.ServiceWithCount, 0, len(services))
	for _, svc := range services {
		if !svc.IsActive {
			continue
		}
		data = append(data, h.withCount(svc))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// GetServiceByID - one service, active or not
func (h *ServiceHandler) GetServiceByID(c *fiber.Ctx) error {
	svc, err := h.catalog.GetService(c.UserContext(), c.Params("service_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.withCount(svc),
	})
}
