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

// Package provider implements the provider context: the registry of
// provider strategy instances, the nine selection policies that choose
// among them, rolling health/latency metrics, and the failover loop that
// retries a failed operation against the next candidate. Concrete
// strategies (e.g. internal/provider/aws) implement the Strategy
// interface; this package never imports a concrete cloud SDK.
package provider

import (
	"context"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// Strategy is the provider interface every cloud backend implements, per
// SPEC_FULL.md §4.5.
type Strategy interface {
	ProvisionMachines(ctx context.Context, req ProvisionRequest) ([]domain.Machine, error)
	TerminateMachines(ctx context.Context, ids []string) error
	GetMachineStatus(ctx context.Context, ids []string) (map[string]domain.MachineStatus, error)
	ValidateTemplate(ctx context.Context, tpl domain.Template) ([]string, error)
	GetAvailableTemplates(ctx context.Context) ([]domain.Template, error)
	HealthCheck(ctx context.Context) error
}

// ProvisionRequest carries everything a Strategy needs to provision
// machines for one Request.
type ProvisionRequest struct {
	RequestID string
	Template  domain.Template
	Count     int
	Tags      domain.Tags
}

// Registration binds a Strategy instance to the metadata the selection
// policies read: priority (lower wins ties and FIRST_AVAILABLE), weight
// (WEIGHTED_ROUND_ROBIN) and the capability set (CAPABILITY_BASED).
type Registration struct {
	Name         string
	Strategy     Strategy
	Priority     int
	Weight       int
	Capabilities []string
}
