package file

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

func TestStore_SaveThenReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	ctx := context.Background()

	s, err := New(path, func(t domain.Template) string { return t.TemplateID })
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, domain.Template{TemplateID: "t1", MaxNumber: 5}))

	reopened, err := New(path, func(t domain.Template) string { return t.TemplateID })
	require.NoError(t, err)
	got, ok, err := reopened.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.MaxNumber)
}

func TestStore_VersionIncrementsOnEachWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	s, err := New(path, func(t domain.Template) string { return t.TemplateID })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, domain.Template{TemplateID: "t1"}))
	v1 := s.Version()
	require.NoError(t, s.Save(ctx, domain.Template{TemplateID: "t2"}))
	v2 := s.Version()

	assert.Greater(t, v2, v1)
}

func TestStore_DeleteMissingReturnsFalseNoError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	s, err := New(path, func(t domain.Template) string { return t.TemplateID })
	require.NoError(t, err)

	deleted, err := s.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_NonExistentFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	s, err := New(path, func(t domain.Template) string { return t.TemplateID })
	require.NoError(t, err)

	all, err := s.GetAll(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
