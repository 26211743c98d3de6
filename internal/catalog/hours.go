package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend-queueflex/internal/models"
)

// OpeningHours is a daily window in a fixed location. Close before Open
// means the window runs past midnight.
type OpeningHours struct {
	Open     string // HH:MM or HH:MM:SS
	Close    string
	Location *time.Location
}

// ParseOpeningHours parses "08:00:00-16:00:00".
func ParseOpeningHours(spec, location string) (OpeningHours, error) {
	open, closing, ok := strings.Cut(spec, "-")
	if !ok {
		return OpeningHours{}, fmt.Errorf("catalog: opening hours %q: want OPEN-CLOSE", spec)
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return OpeningHours{}, fmt.Errorf("catalog: location %q: %w", location, err)
	}
	h := OpeningHours{Open: strings.TrimSpace(open), Close: strings.TrimSpace(closing), Location: loc}
	if _, err := parseClock(h.Open, loc); err != nil {
		return OpeningHours{}, err
	}
	if _, err := parseClock(h.Close, loc); err != nil {
		return OpeningHours{}, err
	}
	return h, nil
}

func parseClock(v string, loc *time.Location) (time.Time, error) {
	// Database TIME can be HH:MM:SS or HH:MM
	if strings.Count(v, ":") == 1 {
		v += ":00"
	}
	t, err := time.ParseInLocation("15:04:05", v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: clock %q: %w", v, err)
	}
	return t, nil
}

// IsOpen reports whether now falls inside the window.
func (h OpeningHours) IsOpen(now time.Time) bool {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	openClock, err := parseClock(h.Open, loc)
	if err != nil {
		return false
	}
	closeClock, err := parseClock(h.Close, loc)
	if err != nil {
		return false
	}

	openTime := time.Date(now.Year(), now.Month(), now.Day(),
		openClock.Hour(), openClock.Minute(), openClock.Second(), 0, loc)
	closeTime := time.Date(now.Year(), now.Month(), now.Day(),
		closeClock.Hour(), closeClock.Minute(), closeClock.Second(), 0, loc)

	// Window past midnight, e.g. 22:00-02:00.
	if closeTime.Before(openTime) {
		closeTime = closeTime.Add(24 * time.Hour)
		if now.Before(openTime) {
			openTime = openTime.Add(-24 * time.Hour)
			closeTime = closeTime.Add(-24 * time.Hour)
		}
	}

	return !now.Before(openTime) && now.Before(closeTime)
}

// Scheduled reports every service as inactive outside opening hours.
type Scheduled struct {
	inner Catalog
	hours OpeningHours
	now   func() time.Time
}

func NewScheduled(inner Catalog, hours OpeningHours, now func() time.Time) *Scheduled {
	if now == nil {
		now = time.Now
	}
	return &Scheduled{inner: inner, hours: hours, now: now}
}

func (s *Scheduled) GetService(ctx context.Context, serviceID string) (models.ServiceDescriptor, error) {
	svc, err := s.inner.GetService(ctx, serviceID)
	if err != nil {
		return svc, err
	}
	svc.IsActive = svc.IsActive && s.hours.IsOpen(s.now())
	return svc, nil
}

func (s *Scheduled) ListServices(ctx context.Context) ([]models.ServiceDescriptor, error) {
	list, err := s.inner.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	open := s.hours.IsOpen(s.now())
	for i := range list {
		list[i].IsActive = list[i].IsActive && open
	}
	return list, nil
}
