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

func TestUpdateMachineStatus_AppliesTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := domain.NewMachine("req-1", "tpl-1", nil)
	require.NoError(t, env.machines.Save(ctx, *m))

	status, err := env.h.UpdateMachineStatus(ctx, bus.UpdateMachineStatus{MachineID: m.MachineID, Status: domain.MachineRunning})
	require.NoError(t, err)
	assert.Equal(t, domain.MachineRunning, status)

	saved, ok, err := env.machines.GetByID(ctx, m.MachineID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.MachineRunning, saved.Status)
}

func TestUpdateMachineStatus_RepeatIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := domain.NewMachine("req-1", "tpl-1", nil)
	require.NoError(t, m.Transition(domain.MachineRunning, env.clock))
	require.NoError(t, env.machines.Save(ctx, *m))

	status, err := env.h.UpdateMachineStatus(ctx, bus.UpdateMachineStatus{MachineID: m.MachineID, Status: domain.MachineRunning})
	require.NoError(t, err)
	assert.Equal(t, domain.MachineRunning, status)
}

func TestUpdateMachineStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.UpdateMachineStatus(context.Background(), bus.UpdateMachineStatus{MachineID: "m-missing", Status: domain.MachineRunning})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))
}

func TestCleanupMachineResources_RequiresTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := domain.NewMachine("req-1", "tpl-1", nil)
	require.NoError(t, env.machines.Save(ctx, *m))

	_, err := env.h.CleanupMachineResources(ctx, bus.CleanupMachineResources{MachineID: m.MachineID})
	require.Error(t, err)
	assert.Equal(t, brokerror.Conflict, brokerror.Of(err))
}

func TestCleanupMachineResources_TerminatesProviderSide(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := domain.NewMachine("req-1", "tpl-1", nil)
	m.AssignProviderInstance("i-abc123", "m5.large", env.clock)
	require.NoError(t, m.Transition(domain.MachineFailed, env.clock))
	require.NoError(t, env.machines.Save(ctx, *m))

	ok, err := env.h.CleanupMachineResources(ctx, bus.CleanupMachineResources{MachineID: m.MachineID})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetActiveMachineCount_FiltersTerminalAndTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	running := domain.NewMachine("req-1", "tpl-1", nil)
	require.NoError(t, running.Transition(domain.MachineRunning, env.clock))
	require.NoError(t, env.machines.Save(ctx, *running))

	terminated := domain.NewMachine("req-1", "tpl-1", nil)
	require.NoError(t, terminated.Transition(domain.MachineFailed, env.clock))
	require.NoError(t, env.machines.Save(ctx, *terminated))

	otherTemplate := domain.NewMachine("req-1", "tpl-2", nil)
	require.NoError(t, otherTemplate.Transition(domain.MachineRunning, env.clock))
	require.NoError(t, env.machines.Save(ctx, *otherTemplate))

	count, err := env.h.GetActiveMachineCount(ctx, bus.GetActiveMachineCount{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err := env.h.GetActiveMachineCount(ctx, bus.GetActiveMachineCount{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestListMachinesByRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := domain.NewMachine("req-1", "tpl-1", nil)
	b := domain.NewMachine("req-1", "tpl-1", nil)
	other := domain.NewMachine("req-2", "tpl-1", nil)
	require.NoError(t, env.machines.Save(ctx, *a))
	require.NoError(t, env.machines.Save(ctx, *b))
	require.NoError(t, env.machines.Save(ctx, *other))

	list, err := env.h.ListMachinesByRequest(ctx, bus.ListMachinesByRequest{RequestID: "req-1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
