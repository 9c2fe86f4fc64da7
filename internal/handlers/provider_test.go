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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/provider"
)

func TestSelectProviderStrategy(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.h.SelectProviderStrategy(context.Background(), bus.SelectProviderStrategy{TemplateID: "tpl-1"})
	require.NoError(t, err)
	assert.Equal(t, "aws-primary", result.ProviderInstance)
}

func TestExecuteProviderOperation_HealthCheck(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.h.ExecuteProviderOperation(context.Background(), bus.ExecuteProviderOperation{
		ProviderInstance: "aws-primary",
		Operation:        "health_check",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Result)
}

func TestExecuteProviderOperation_UnknownOperation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.ExecuteProviderOperation(context.Background(), bus.ExecuteProviderOperation{
		ProviderInstance: "aws-primary",
		Operation:        "not-a-real-operation",
	})
	require.Error(t, err)
	assert.Equal(t, brokerror.Validation, brokerror.Of(err))
}

func TestExecuteProviderOperation_Status(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.h.ExecuteProviderOperation(context.Background(), bus.ExecuteProviderOperation{
		ProviderInstance: "aws-primary",
		Operation:        "status",
		Payload:          []string{"i-1", "i-2"},
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Result)
}

func TestRegisterProviderStrategy_UnknownType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.RegisterProviderStrategy(context.Background(), bus.RegisterProviderStrategy{
		ProviderType: "does-not-exist",
		InstanceName: "x",
	})
	require.Error(t, err)
	assert.Equal(t, brokerror.Validation, brokerror.Of(err))
}

func TestRegisterProviderStrategy_UsesFactory(t *testing.T) {
	env := newTestEnv(t)
	called := false
	env.h.RegisterStrategyFactory("fake", func(cfg map[string]string) (provider.Strategy, error) {
		called = true
		return &fakeStrategy{}, nil
	})

	ok, err := env.h.RegisterProviderStrategy(context.Background(), bus.RegisterProviderStrategy{
		ProviderType: "fake",
		InstanceName: "fake-secondary",
		Config:       map[string]string{"region": "us-east-1"},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)

	cfg, err := env.h.GetProviderConfig(context.Background(), bus.GetProviderConfig{ProviderInstance: "fake-secondary"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg["region"])
}

func TestRegisterProviderStrategy_FactoryError(t *testing.T) {
	env := newTestEnv(t)
	env.h.RegisterStrategyFactory("broken", func(cfg map[string]string) (provider.Strategy, error) {
		return nil, errors.New("boom")
	})

	_, err := env.h.RegisterProviderStrategy(context.Background(), bus.RegisterProviderStrategy{
		ProviderType: "broken",
		InstanceName: "broken-1",
	})
	require.Error(t, err)
	assert.Equal(t, brokerror.Internal, brokerror.Of(err))
}

func TestUpdateProviderHealth_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.UpdateProviderHealth(context.Background(), bus.UpdateProviderHealth{ProviderInstance: "missing", Healthy: true})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))
}

func TestUpdateProviderHealth_RecordsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ok, err := env.h.UpdateProviderHealth(context.Background(), bus.UpdateProviderHealth{ProviderInstance: "aws-primary", Healthy: false})
	require.NoError(t, err)
	assert.True(t, ok)

	snap, err := env.h.GetProviderHealth(context.Background(), bus.GetProviderHealth{ProviderInstance: "aws-primary"})
	require.NoError(t, err)
	assert.False(t, snap.Healthy)
	assert.Equal(t, 1, snap.ConsecutiveErr)
}

func TestConfigureProviderStrategy_RequiresPolicy(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.ConfigureProviderStrategy(context.Background(), bus.ConfigureProviderStrategy{})
	require.Error(t, err)
	assert.Equal(t, brokerror.Validation, brokerror.Of(err))
}

func TestConfigureProviderStrategy_SetsPolicy(t *testing.T) {
	env := newTestEnv(t)
	ok, err := env.h.ConfigureProviderStrategy(context.Background(), bus.ConfigureProviderStrategy{SelectionPolicy: string(provider.RoundRobin)})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, provider.RoundRobin, env.h.providers.Selector.Policy())
}

func TestListAvailableProviders(t *testing.T) {
	env := newTestEnv(t)
	list, err := env.h.ListAvailableProviders(context.Background(), bus.ListAvailableProviders{})
	require.NoError(t, err)
	assert.Contains(t, list, "aws-primary")
}

func TestGetProviderCapabilities(t *testing.T) {
	env := newTestEnv(t)
	caps, err := env.h.GetProviderCapabilities(context.Background(), bus.GetProviderCapabilities{ProviderInstance: "aws-primary"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aws"}, caps)
}

func TestGetProviderCapabilities_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.GetProviderCapabilities(context.Background(), bus.GetProviderCapabilities{ProviderInstance: "missing"})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))
}

func TestGetProviderMetrics_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.GetProviderMetrics(context.Background(), bus.GetProviderMetrics{ProviderInstance: "missing"})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))
}

func TestGetProviderConfig_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.h.GetProviderConfig(context.Background(), bus.GetProviderConfig{ProviderInstance: "missing"})
	require.Error(t, err)
	assert.Equal(t, brokerror.NotFound, brokerror.Of(err))
}
