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

package file

import (
	"context"

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/repository"
)

// Templates is the file-backed repository.TemplateRepository.
type Templates struct {
	*Store[domain.Template]
}

// NewTemplates opens (or creates) a JSON template store at path.
func NewTemplates(path string) (*Templates, error) {
	s, err := New(path, func(t domain.Template) string { return t.TemplateID })
	if err != nil {
		return nil, err
	}
	return &Templates{Store: s}, nil
}

func (t *Templates) FindByProviderType(ctx context.Context, providerType string) ([]domain.Template, error) {
	return t.GetAll(ctx, func(tpl domain.Template) bool { return tpl.ProviderType == providerType }, 0, 0)
}

func (t *Templates) FindActive(ctx context.Context) ([]domain.Template, error) {
	return t.GetAll(ctx, func(tpl domain.Template) bool { return tpl.IsActive }, 0, 0)
}

// Requests is the file-backed repository.RequestRepository.
type Requests struct {
	*Store[domain.Request]
}

func NewRequests(path string) (*Requests, error) {
	s, err := New(path, func(r domain.Request) string { return r.RequestID })
	if err != nil {
		return nil, err
	}
	return &Requests{Store: s}, nil
}

func (r *Requests) FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error) {
	return r.GetAll(ctx, func(req domain.Request) bool { return req.Status == status }, 0, 0)
}

// Machines is the file-backed repository.MachineRepository.
type Machines struct {
	*Store[domain.Machine]
}

func NewMachines(path string) (*Machines, error) {
	s, err := New(path, func(m domain.Machine) string { return m.MachineID })
	if err != nil {
		return nil, err
	}
	return &Machines{Store: s}, nil
}

func (m *Machines) FindByRequest(ctx context.Context, requestID string) ([]domain.Machine, error) {
	return m.GetAll(ctx, func(mc domain.Machine) bool { return mc.RequestID == requestID }, 0, 0)
}

func (m *Machines) FindByStatus(ctx context.Context, status domain.MachineStatus) ([]domain.Machine, error) {
	return m.GetAll(ctx, func(mc domain.Machine) bool { return mc.Status == status }, 0, 0)
}

var (
	_ repository.TemplateRepository = (*Templates)(nil)
	_ repository.RequestRepository  = (*Requests)(nil)
	_ repository.MachineRepository  = (*Machines)(nil)
)
