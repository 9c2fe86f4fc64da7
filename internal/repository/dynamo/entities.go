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

package dynamo

import (
	"context"

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/repository"
)

// Requests is the DynamoDB-backed repository.RequestRepository.
//
// Templates have no Dynamo-backed implementation: template definitions
// are operator-managed config, not request-time state, so they only
// ever live in the file or memory backends.
type Requests struct {
	*Store[domain.Request]
}

// NewRequests wraps an existing DynamoDB table as a RequestRepository.
func NewRequests(client ddbClient, tableName string) *Requests {
	return &Requests{Store: New(client, tableName, func(r domain.Request) string { return r.RequestID })}
}

func (r *Requests) FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	return r.GetAll(ctx, func(req domain.Request) bool { return req.Status == status }, 0, 0)
}

// Machines is the DynamoDB-backed repository.MachineRepository.
type Machines struct {
	*Store[domain.Machine]
}

func NewMachines(client ddbClient, tableName string) *Machines {
	return &Machines{Store: New(client, tableName, func(m domain.Machine) string { return m.MachineID })}
}

func (m *Machines) FindByRequest(ctx context.Context, requestID string) ([]domain.Machine, error) {
	return m.GetAll(ctx, func(mc domain.Machine) bool { return mc.RequestID == requestID }, 0, 0)
}

func (m *Machines) FindByStatus(ctx context.Context, status domain.MachineStatus) ([]domain.Machine, error) {
	return m.GetAll(ctx, func(mc domain.Machine) bool { return mc.Status == status }, 0, 0)
}

var (
	_ repository.RequestRepository = (*Requests)(nil)
	_ repository.MachineRepository = (*Machines)(nil)
)
