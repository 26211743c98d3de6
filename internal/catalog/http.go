package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"backend-queueflex/internal/models"
)

// DefaultCapacity applies when the registry omits max_capacity.
const DefaultCapacity = 50

// HTTP talks to a remote service registry exposing
// GET {base}/services and GET {base}/services/{id}.
type HTTP struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTP(baseURL, token string, timeout time.Duration) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type registryService struct {
	ServiceID   string `json:"service_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	MaxCapacity *int   `json:"max_capacity"`
	Status      string `json:"status"`
	IsActive    *bool  `json:"is_active"`
}

func (r registryService) descriptor() models.ServiceDescriptor {
	capacity := DefaultCapacity
	if r.MaxCapacity != nil {
		capacity = *r.MaxCapacity
	}
	active := r.Status == "active"
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.ServiceDescriptor{
		ServiceID:   r.ServiceID,
		Name:        r.Name,
		Category:    r.Category,
		MaxCapacity: capacity,
		IsActive:    active,
	}
}

func (h *HTTP) GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error) {
	var svc registryService
	status, err := h.get(ctx, "/services/"+url.PathEscape(serviceID), &svc)
	if err != nil {
		return models.ServiceDescriptor{}, err
	}
	if status == http.StatusNotFound {
		return models.ServiceDescriptor{}, ErrServiceNotFound
	}
	if svc.ServiceID == "" {
		svc.ServiceID = serviceID
	}
	return svc.descriptor(), nil
}

func (h *HTTP) ListServices(ctx context.Context) ([]models.ServiceDescriptor, error) {
	var list []registryService
	if _, err := h.get(ctx, "/services", &list); err != nil {
		return nil, err
	}
	out := make([]models.ServiceDescriptor, 0, len(list))
	for _, svc := range list {
		out = append(out, svc.descriptor())
	}
	return out, nil
}

// get decodes a 200 response into dst. A 404 is returned as a status, any
// other failure as ErrUnavailable.
func (h *HTTP) get(ctx context.Context, path string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog/http: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return resp.StatusCode, nil
	default:
		return resp.StatusCode, fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return resp.StatusCode, nil
}
