package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_Load_DiscoversAllPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates.json", `[{"templateId": "t1", "maxNumber": 1}]`)
	writeFile(t, dir, "awsinst_templates.json", `[{"templateId": "t2", "maxNumber": 2}]`)

	loader := NewLoader(dir)
	raws, err := loader.Load("aws")
	require.NoError(t, err)
	require.Len(t, raws, 2)
}

func TestLoader_Load_InstFileGetsHighestPriority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates.json", `[{"templateId": "t1", "maxNumber": 1}]`)
	writeFile(t, dir, "awsinst_templates.json", `[{"templateId": "t1", "maxNumber": 9}]`)

	loader := NewLoader(dir)
	raws, err := loader.Load("aws")
	require.NoError(t, err)

	var priorities []int
	for _, r := range raws {
		priorities = append(priorities, r.FilePriority)
	}
	assert.Contains(t, priorities, len(filePatterns))
}

func TestLoader_Load_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates.yaml", "- templateId: t1\n  maxNumber: 3\n")

	loader := NewLoader(dir)
	raws, err := loader.Load("aws")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "t1", raws[0].Fields["templateId"])
}

func TestLoader_Load_PreservesInstanceTypesOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates.json", `[{"templateId": "t1", "instance_types": {"t3.large": 2, "t2.medium": 1}}]`)

	loader := NewLoader(dir)
	raws, err := loader.Load("aws")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, []string{"t3.large", "t2.medium"}, raws[0].InstanceTypesOrder)
}

func TestLoader_Load_MissingDirIsEmptyNotError(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"))
	raws, err := loader.Load("aws")
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestMergeByPriority_KeepsHighestPriority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates.json", `[{"templateId": "t1", "maxNumber": 1, "imageId": "ami-00000000", "subnetId": "subnet-00000000"}]`)
	writeFile(t, dir, "awsinst_templates.json", `[{"templateId": "t1", "maxNumber": 9, "imageId": "ami-00000000", "subnetId": "subnet-00000000"}]`)

	mgr := NewManager(dir, "aws", 0)
	require.NoError(t, mgr.Reload())

	tpl, ok, err := mgr.Get(nil, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, tpl.MaxNumber)
}
