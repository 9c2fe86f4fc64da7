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

// Package repository defines the storage ports Template, Request, and
// Machine aggregates are persisted through, and the three selectable
// backend implementations (memory, file, dynamo) living in subpackages.
// Repositories never enforce business rules; they persist exactly what
// the aggregate provides.
package repository

import (
	"context"

	"github.com/awslabs/open-resource-broker/internal/domain"
)

// Filter is a caller-supplied predicate used by GetAll and the
// entity-specific finders below. A nil filter matches everything.
type Filter[T any] func(T) bool

// Repository is the port shared by every entity and backend: get/list/
// save/delete/exists. Save is upsert. Delete of a missing id returns
// (false, nil). GetByID returns (zero, false, nil) for a missing id.
// GetAll with no matches returns an empty, non-nil slice.
type Repository[T any] interface {
	GetByID(ctx context.Context, id string) (T, bool, error)
	GetAll(ctx context.Context, filter Filter[T], limit, offset int) ([]T, error)
	Save(ctx context.Context, item T) error
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// TemplateRepository adds the template-specific finders spec.md §4.6
// calls for: by provider type, and the active subset. Template storage
// only ever uses the file and memory backends (see DESIGN.md) — no
// TemplateRepository implementation lives in repository/dynamo.
type TemplateRepository interface {
	Repository[domain.Template]
	FindByProviderType(ctx context.Context, providerType string) ([]domain.Template, error)
	FindActive(ctx context.Context) ([]domain.Template, error)
}

// RequestRepository adds the by-status finder.
type RequestRepository interface {
	Repository[domain.Request]
	FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error)
}

// MachineRepository adds the by-request and by-status finders.
type MachineRepository interface {
	Repository[domain.Machine]
	FindByRequest(ctx context.Context, requestID string) ([]domain.Machine, error)
	FindByStatus(ctx context.Context, status domain.MachineStatus) ([]domain.Machine, error)
}
