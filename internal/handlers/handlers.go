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

// Package handlers implements the application command/query handlers:
// the orchestration layer that validates input, loads aggregates from
// repositories, invokes the provider context, persists the result, and
// publishes the domain events an aggregate mutator raised. Handlers
// never talk to a cloud SDK or a file directly; they only go through
// internal/repository, internal/provider, and internal/template.
package handlers

import (
	"sync"
	"time"

	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/logging"
	"github.com/awslabs/open-resource-broker/internal/provider"
	"github.com/awslabs/open-resource-broker/internal/repository"
	"github.com/awslabs/open-resource-broker/internal/template"
)

const defaultBackgroundTimeout = 10 * time.Minute

// Handlers bundles every collaborator the command/query handlers need
// and exposes one method per bus.CreateRequest/GetRequest/... type.
// One Handlers instance is constructed per process in cmd/brokerd and
// registered onto the bus once at startup.
type Handlers struct {
	requests  repository.RequestRepository
	machines  repository.MachineRepository
	templates *template.Manager
	templateRepo repository.TemplateRepository
	providers *provider.Context
	publisher domain.Publisher
	locks     *domain.LockSet
	logger    *logging.Logger

	poolSize int
	now      func() time.Time

	mu        sync.RWMutex
	factories map[string]StrategyFactory
	configs   map[string]map[string]string
}

// StrategyFactory builds a provider.Strategy from an operator-supplied
// config map, the same shape the teacher's llm.ProviderFactory takes a
// llm.ProviderConfig. cmd/brokerd registers one factory per supported
// provider_type (e.g. "aws") at startup; RegisterProviderStrategy
// commands look the factory up by ProviderType at runtime.
type StrategyFactory func(config map[string]string) (provider.Strategy, error)

// New constructs a Handlers wired with its collaborators. publisher may
// be nil, in which case raised events are discarded; locks may be nil,
// in which case a fresh domain.LockSet is created.
func New(
	requests repository.RequestRepository,
	machines repository.MachineRepository,
	templates *template.Manager,
	templateRepo repository.TemplateRepository,
	providers *provider.Context,
	publisher domain.Publisher,
	locks *domain.LockSet,
) *Handlers {
	if locks == nil {
		locks = domain.NewLockSet()
	}
	return &Handlers{
		requests:     requests,
		machines:     machines,
		templates:    templates,
		templateRepo: templateRepo,
		providers:    providers,
		publisher:    publisher,
		locks:        locks,
		logger:       logging.New("handlers"),
		poolSize:     defaultPoolSize,
		now:          time.Now,
		factories:    make(map[string]StrategyFactory),
		configs:      make(map[string]map[string]string),
	}
}

// RegisterStrategyFactory binds a StrategyFactory to a provider_type, so
// a later RegisterProviderStrategy command naming that type can build a
// live Strategy without handlers importing a concrete cloud package.
func (h *Handlers) RegisterStrategyFactory(providerType string, factory StrategyFactory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[providerType] = factory
}

func (h *Handlers) publish(events []domain.Event) {
	if h.publisher == nil || len(events) == 0 {
		return
	}
	h.publisher.Publish(events...)
}

// Register binds every command and query handler onto b. Call once at
// startup after every collaborator (repositories, provider context,
// template manager) is constructed.
func (h *Handlers) Register(b *bus.Bus) {
	bus.Register(b, h.CreateRequest)
	bus.Register(b, h.UpdateRequestStatus)
	bus.Register(b, h.CompleteRequest)
	bus.Register(b, h.ReturnMachines)
	bus.Register(b, h.UpdateMachineStatus)
	bus.Register(b, h.CleanupMachineResources)
	bus.Register(b, h.ValidateTemplate)
	bus.Register(b, h.CreateTemplate)
	bus.Register(b, h.UpdateTemplate)
	bus.Register(b, h.DeleteTemplate)
	bus.Register(b, h.SelectProviderStrategy)
	bus.Register(b, h.ExecuteProviderOperation)
	bus.Register(b, h.RegisterProviderStrategy)
	bus.Register(b, h.UpdateProviderHealth)
	bus.Register(b, h.ConfigureProviderStrategy)

	bus.Register(b, h.GetRequest)
	bus.Register(b, h.ListActiveRequests)
	bus.Register(b, h.GetRequestStatus)
	bus.Register(b, h.GetMachine)
	bus.Register(b, h.ListMachinesByRequest)
	bus.Register(b, h.GetActiveMachineCount)
	bus.Register(b, h.ListTemplates)
	bus.Register(b, h.GetTemplate)
	bus.Register(b, h.GetProviderHealth)
	bus.Register(b, h.ListAvailableProviders)
	bus.Register(b, h.GetProviderCapabilities)
	bus.Register(b, h.GetProviderMetrics)
	bus.Register(b, h.GetProviderConfig)
}
