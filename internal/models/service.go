package models

// ServiceDescriptor is the catalog's view of a queueable service. The engine
// only reads it.
type ServiceDescriptor struct {
	ServiceID   string `json:"service_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	MaxCapacity int    `json:"max_capacity"`
	IsActive    bool   `json:"is_active"`
}

// ServiceWithCount - response item for GET /services
type ServiceWithCount struct {
	ServiceDescriptor
	CurrentQueueCount int `json:"current_queue_count"`
	RemainingQuota    int `json:"remaining_quota"`
}
