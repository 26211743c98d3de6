package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-queueflex/internal/models"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(
		models.ServiceDescriptor{ServiceID: "b", Name: "B", MaxCapacity: 3, IsActive: true},
		models.ServiceDescriptor{ServiceID: "a", Name: "A", MaxCapacity: 1},
	)

	svc, err := s.GetService(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, svc.MaxCapacity)

	_, err = s.GetService(ctx, "zzz")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	s.Put(models.ServiceDescriptor{ServiceID: "c", Name: "C"})
	list, err := s.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ServiceID)
	assert.Equal(t, "c", list[2].ServiceID)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.GetService(cancelled, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseServices(t *testing.T) {
	list, err := ParseServices("loket-a|Loket A|Permits|2; loket-b|Loket B||; loket-c")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, models.ServiceDescriptor{
		ServiceID: "loket-a", Name: "Loket A", Category: "Permits", MaxCapacity: 2, IsActive: true,
	}, list[0])
	assert.Equal(t, DefaultCapacity, list[1].MaxCapacity)
	assert.Empty(t, list[1].Category)
	assert.Equal(t, "loket-c", list[2].ServiceID)
	assert.True(t, list[2].IsActive)

	empty, err := ParseServices("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseServices("|name")
	assert.Error(t, err)
	_, err = ParseServices("x|X||many")
	assert.Error(t, err)
	_, err = ParseServices("x|X||-1")
	assert.Error(t, err)
}
