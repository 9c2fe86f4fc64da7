// Copyright 2025 Open Resource Broker Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
)

func validTemplate(id string) domain.Template {
	return domain.Template{
		TemplateID:   id,
		MaxNumber:    5,
		ImageID:      "ami-0123456789abcdef0",
		InstanceType: "m5.large",
		SubnetIDs:    []string{"subnet-0123456789abcdef0"},
		PriceType:    "ondemand",
		ProviderType: "aws",
		IsActive:     true,
	}
}

func TestValidateTemplate(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.h.ValidateTemplate(context.Background(), bus.ValidateTemplate{Template: validTemplate("tpl-new")})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestCreateTemplate_RejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := validTemplate("tpl-new")

	ok, err := env.h.CreateTemplate(ctx, bus.CreateTemplate{Template: tpl})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.h.CreateTemplate(ctx, bus.CreateTemplate{Template: tpl})
	require.Error(t, err)
	assert.Equal(t, brokerror.Conflict, brokerror.Of(err))
}

func TestCreateTemplate_RejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	tpl := validTemplate("tpl-bad")
	tpl.MaxNumber = 0

	_, err := env.h.CreateTemplate(context.Background(), bus.CreateTemplate{Template: tpl})
	require.Error(t, err)
	assert.Equal(t, brokerror.Validation, brokerror.Of(err))
}

func TestUpdateTemplate_RequiresExisting(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.UpdateTemplate(context.Background(), bus.UpdateTemplate{Template: validTemplate("tpl-absent")})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))
}

func TestUpdateTemplate_UpdatesExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := validTemplate("tpl-new")
	_, err := env.h.CreateTemplate(ctx, bus.CreateTemplate{Template: tpl})
	require.NoError(t, err)

	tpl.MaxNumber = 10
	ok, err := env.h.UpdateTemplate(ctx, bus.UpdateTemplate{Template: tpl})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, ok, err := env.tplRepo.GetByID(ctx, tpl.TemplateID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, stored.MaxNumber)
}

func TestDeleteTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl := validTemplate("tpl-new")
	_, err := env.h.CreateTemplate(ctx, bus.CreateTemplate{Template: tpl})
	require.NoError(t, err)

	deleted, err := env.h.DeleteTemplate(ctx, bus.DeleteTemplate{TemplateID: tpl.TemplateID})
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = env.h.DeleteTemplate(ctx, bus.DeleteTemplate{TemplateID: tpl.TemplateID})
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListTemplates_FiltersByProviderAPI(t *testing.T) {
	env := newTestEnv(t)
	list, err := env.h.ListTemplates(context.Background(), bus.ListTemplates{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tpl-1", list[0].TemplateID)

	filtered, err := env.h.ListTemplates(context.Background(), bus.ListTemplates{ProviderAPI: "does-not-exist"})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestGetTemplate_FallsBackToRepository(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.h.GetTemplate(ctx, bus.GetTemplate{TemplateID: "tpl-admin-only"})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))

	tpl := validTemplate("tpl-admin-only")
	_, err = env.h.CreateTemplate(ctx, bus.CreateTemplate{Template: tpl})
	require.NoError(t, err)

	got, err := env.h.GetTemplate(ctx, bus.GetTemplate{TemplateID: "tpl-admin-only"})
	require.NoError(t, err)
	assert.Equal(t, tpl.TemplateID, got.TemplateID)

	fromManager, err := env.h.GetTemplate(ctx, bus.GetTemplate{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", fromManager.TemplateID)
}
