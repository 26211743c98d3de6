package queue

import (
	"fmt"
	"sort"
	"strings"

	"backend-queueflex/internal/models"
)

// Field names accepted in an update payload.
const (
	FieldDisplayName      = "display_name"
	FieldPurpose          = "purpose"
	FieldServiceTypeLabel = "service_type_label"
	FieldStatus           = "status"
)

// immutableFields can never be written by a client; position in particular
// is owned by the ledger.
var immutableFields = map[string]struct{}{
	"id":         {},
	"owner_id":   {},
	"service_id": {},
	"created_at": {},
	"position":   {},
}

// Patch is a validated sparse update.
type Patch struct {
	DisplayName      *string
	Purpose          *string
	ServiceTypeLabel *string
	Status           *models.Status
}

// ParsePatch validates a field map from a client. Immutable fields yield
// ErrImmutableField; unknown fields and non-string values yield
// ErrInvalidInput.
func ParsePatch(fields map[string]any) (Patch, error) {
	var p Patch

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := immutableFields[k]; ok {
			return Patch{}, fmt.Errorf("%w: %s", ErrImmutableField, k)
		}
		v, ok := fields[k].(string)
		if !ok {
			return Patch{}, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, k)
		}
		switch k {
		case FieldDisplayName:
			v = strings.TrimSpace(v)
			if v == "" {
				return Patch{}, fmt.Errorf("%w: display_name cannot be empty", ErrInvalidInput)
			}
			p.DisplayName = &v
		case FieldPurpose:
			p.Purpose = &v
		case FieldServiceTypeLabel:
			p.ServiceTypeLabel = &v
		case FieldStatus:
			st := models.Status(v)
			if !st.Valid() {
				return Patch{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, v)
			}
			p.Status = &st
		default:
			return Patch{}, fmt.Errorf("%w: unknown field %s", ErrInvalidInput, k)
		}
	}
	return p, nil
}

func (p Patch) apply(e *models.QueueEntry) {
	if p.DisplayName != nil {
		e.DisplayName = *p.DisplayName
	}
	if p.Purpose != nil {
		e.Purpose = *p.Purpose
	}
	if p.ServiceTypeLabel != nil {
		e.ServiceTypeLabel = *p.ServiceTypeLabel
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}
