package queue

import "backend-queueflex/internal/models"

// Admit decides whether one more entry may join the service's queue.
// waiting must be read under the service's exclusive lock.
func Admit(service models.ServiceDescriptor, waiting int) bool {
	if !service.IsActive {
		return false
	}
	return waiting < service.MaxCapacity
}

// admissionError explains a refusal from Admit.
func admissionError(service models.ServiceDescriptor, waiting int) error {
	if !service.IsActive {
		return ErrServiceInactive
	}
	if waiting >= service.MaxCapacity {
		return ErrQueueFull
	}
	return nil
}
