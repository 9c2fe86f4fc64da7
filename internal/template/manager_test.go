package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

func TestManager_Reload_LoadsAndCachesTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "awsinst_templates.json", `[{"templateId": "t1", "maxNumber": 5, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"}]`)

	mgr := NewManager(dir, "aws", time.Minute)
	require.NoError(t, mgr.Reload())

	tpl, ok, err := mgr.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, tpl.MaxNumber)
	assert.Equal(t, "ami-0abc1234", tpl.ImageID)
}

func TestManager_Get_MissingTemplateReturnsFalse(t *testing.T) {
	mgr := NewManager(t.TempDir(), "aws", time.Minute)
	require.NoError(t, mgr.Reload())

	_, ok, err := mgr.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_List_ReturnsSortedTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates.json", `[
		{"templateId": "t2", "maxNumber": 1, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"},
		{"templateId": "t1", "maxNumber": 1, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"}
	]`)

	mgr := NewManager(dir, "aws", time.Minute)
	require.NoError(t, mgr.Reload())

	list, err := mgr.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].TemplateID)
	assert.Equal(t, "t2", list[1].TemplateID)
}

func TestManager_Get_TTLExpiryRefreshesFromDiskWithoutReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "awsinst_templates.json")
	writeFile(t, dir, "awsinst_templates.json", `[{"templateId": "t1", "maxNumber": 5, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"}]`)

	mgr := NewManager(dir, "aws", time.Millisecond)
	require.NoError(t, mgr.Reload())

	tpl, _, err := mgr.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, tpl.MaxNumber)

	// Edit the file on disk directly, with no further call to Reload.
	// TTL expiry alone must be enough for the next Get to pick it up.
	require.NoError(t, os.WriteFile(path, []byte(`[{"templateId": "t1", "maxNumber": 9, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"}]`), 0o644))

	time.Sleep(5 * time.Millisecond)
	tpl, _, err = mgr.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 9, tpl.MaxNumber)
}

func TestManager_Get_WithinTTLDoesNotRereadDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "awsinst_templates.json")
	writeFile(t, dir, "awsinst_templates.json", `[{"templateId": "t1", "maxNumber": 5, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"}]`)

	mgr := NewManager(dir, "aws", time.Minute)
	require.NoError(t, mgr.Reload())

	tpl, _, err := mgr.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, tpl.MaxNumber)

	require.NoError(t, os.WriteFile(path, []byte(`[{"templateId": "t1", "maxNumber": 9, "imageId": "ami-0abc1234", "subnetId": "subnet-aaaa1111"}]`), 0o644))

	tpl, _, err = mgr.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, tpl.MaxNumber, "cache is still within its TTL window, Get must not re-read disk")
}

func TestManager_RemapOutbound_UsesRegistry(t *testing.T) {
	mgr := NewManager(t.TempDir(), "aws", time.Minute)
	require.NoError(t, mgr.Reload())

	external := mgr.RemapOutbound(domain.Template{TemplateID: "t1", InstanceType: "m5.large"}, "hostfactory")
	assert.Equal(t, "t1", external["templateId"])
	assert.Equal(t, "m5.large", external["vmType"])
}
