// Package catalog resolves service descriptors from the external service
// registry. The queue engine only reads from it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"backend-queueflex/internal/models"
)

var (
	ErrServiceNotFound = errors.New("catalog: service not found")
	ErrUnavailable     = errors.New("catalog: registry unavailable")
)

// Catalog is a read-only source of service descriptors.
type Catalog interface {
	GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error)
	ListServices(ctx context.Context) ([]models.ServiceDescriptor, error)
}

// Static is an in-memory catalog for development and tests.
type Static struct {
	mu       sync.RWMutex
	services map[string]models.ServiceDescriptor
}

func NewStatic(services ...models.ServiceDescriptor) *Static {
	s := &Static{services: make(map[string]models.ServiceDescriptor, len(services))}
	for _, svc := range services {
		s.services[svc.ServiceID] = svc
	}
	return s
}

// Put adds or replaces a descriptor.
func (s *Static) Put(svc models.ServiceDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ServiceID] = svc
}

func (s *Static) GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return models.ServiceDescriptor{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[serviceID]
	if !ok {
		return models.ServiceDescriptor{}, ErrServiceNotFound
	}
	return svc, nil
}

func (s *Static) ListServices(ctx context.Context) ([]models.ServiceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.ServiceDescriptor, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out, nil
}

// ParseServices reads "id|name|category|capacity" items separated by ";".
// Category and capacity may be empty; capacity then defaults to
// DefaultCapacity. Every parsed service is active.
func ParseServices(spec string) ([]models.ServiceDescriptor, error) {
	var out []models.ServiceDescriptor
	for _, item := range strings.Split(spec, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "|")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		svc := models.ServiceDescriptor{
			ServiceID:   strings.TrimSpace(parts[0]),
			Name:        strings.TrimSpace(parts[1]),
			Category:    strings.TrimSpace(parts[2]),
			MaxCapacity: DefaultCapacity,
			IsActive:    true,
		}
		if svc.ServiceID == "" {
			return nil, fmt.Errorf("catalog: service %q: missing id", item)
		}
		if c := strings.TrimSpace(parts[3]); c != "" {
			n, err := strconv.Atoi(c)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("catalog: service %q: bad capacity %q", item, c)
			}
			svc.MaxCapacity = n
		}
		out = append(out, svc)
	}
	return out, nil
}
