package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

func TestStore_SaveIsUpsert(t *testing.T) {
	s := New(func(t domain.Template) string { return t.TemplateID })
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.Template{TemplateID: "t1", MaxNumber: 1}))
	require.NoError(t, s.Save(ctx, domain.Template{TemplateID: "t1", MaxNumber: 2}))

	got, ok, err := s.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.MaxNumber)
}

func TestStore_GetByID_MissingReturnsFalse(t *testing.T) {
	s := New(func(t domain.Template) string { return t.TemplateID })
	_, ok, err := s.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete_MissingReturnsFalseNoError(t *testing.T) {
	s := New(func(t domain.Template) string { return t.TemplateID })
	deleted, err := s.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_GetAll_FiltersAndPaginates(t *testing.T) {
	s := New(func(t domain.Template) string { return t.TemplateID })
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Save(ctx, domain.Template{TemplateID: id, IsActive: id != "c"}))
	}

	all, err := s.GetAll(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := s.GetAll(ctx, func(t domain.Template) bool { return t.IsActive }, 0, 0)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	page, err := s.GetAll(ctx, nil, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].TemplateID)
	assert.Equal(t, "c", page[1].TemplateID)
}

func TestStore_GetAll_NoMatchesReturnsEmptyNotNil(t *testing.T) {
	s := New(func(t domain.Template) string { return t.TemplateID })
	got, err := s.GetAll(context.Background(), func(domain.Template) bool { return false }, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTemplates_Finders(t *testing.T) {
	ts := NewTemplates()
	ctx := context.Background()
	require.NoError(t, ts.Save(ctx, domain.Template{TemplateID: "t1", ProviderType: "aws", IsActive: true}))
	require.NoError(t, ts.Save(ctx, domain.Template{TemplateID: "t2", ProviderType: "azure", IsActive: false}))

	byProvider, err := ts.FindByProviderType(ctx, "aws")
	require.NoError(t, err)
	assert.Len(t, byProvider, 1)

	active, err := ts.FindActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestMachines_FindByRequestAndStatus(t *testing.T) {
	ms := NewMachines()
	ctx := context.Background()
	require.NoError(t, ms.Save(ctx, domain.Machine{MachineID: "m1", RequestID: "r1", Status: domain.MachineRunning}))
	require.NoError(t, ms.Save(ctx, domain.Machine{MachineID: "m2", RequestID: "r1", Status: domain.MachinePending}))
	require.NoError(t, ms.Save(ctx, domain.Machine{MachineID: "m3", RequestID: "r2", Status: domain.MachineRunning}))

	byRequest, err := ms.FindByRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, byRequest, 2)

	running, err := ms.FindByStatus(ctx, domain.MachineRunning)
	require.NoError(t, err)
	assert.Len(t, running, 2)
}
