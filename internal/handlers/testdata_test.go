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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/provider"
	"github.com/awslabs/open-resource-broker/internal/repository/memory"
	"github.com/awslabs/open-resource-broker/internal/template"
)

// fakeStrategy is a controllable provider.Strategy, kept local to this
// package (provider's own fakeStrategy is unexported and lives in its
// own test file) so handler tests can drive specific outcomes without
// touching internal/provider/aws.
type fakeStrategy struct {
	provisionErr   error
	provisionShort int // when > 0, provision this many fewer machines than requested
	terminateErr   error
	healthErr      error
}

func (f *fakeStrategy) ProvisionMachines(_ context.Context, req provider.ProvisionRequest) ([]domain.Machine, error) {
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	count := req.Count - f.provisionShort
	out := make([]domain.Machine, 0, count)
	for i := 0; i < count; i++ {
		m := domain.NewMachine(req.RequestID, req.Template.TemplateID, req.Tags)
		m.Status = domain.MachineRunning
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStrategy) TerminateMachines(_ context.Context, ids []string) error {
	return f.terminateErr
}

func (f *fakeStrategy) GetMachineStatus(_ context.Context, ids []string) (map[string]domain.MachineStatus, error) {
	out := make(map[string]domain.MachineStatus, len(ids))
	for _, id := range ids {
		out[id] = domain.MachineRunning
	}
	return out, nil
}

func (f *fakeStrategy) ValidateTemplate(_ context.Context, _ domain.Template) ([]string, error) {
	return nil, nil
}

func (f *fakeStrategy) GetAvailableTemplates(_ context.Context) ([]domain.Template, error) {
	return nil, nil
}

func (f *fakeStrategy) HealthCheck(_ context.Context) error {
	return f.healthErr
}

const fixtureTemplateJSON = `[
  {
    "templateId": "tpl-1",
    "maxNumber": 5,
    "imageId": "ami-0123456789abcdef0",
    "vmType": "m5.large",
    "subnetIds": ["subnet-0123456789abcdef0"],
    "priceType": "ondemand",
    "provider_type": "aws",
    "is_active": true
  }
]`

// testEnv bundles everything a handler test needs: a Handlers wired with
// in-memory repositories, a file-backed template Manager loaded from a
// temp-dir fixture, and a provider Context carrying one fake strategy.
type testEnv struct {
	h        *Handlers
	requests *memory.Requests
	machines *memory.Machines
	tplRepo  *memory.Templates
	strategy *fakeStrategy
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "templates.json"), []byte(fixtureTemplateJSON), 0o644); err != nil {
		t.Fatalf("writing fixture templates: %v", err)
	}
	mgr := template.NewManager(dir, "aws", time.Minute)
	if err := mgr.Reload(); err != nil {
		t.Fatalf("loading fixture templates: %v", err)
	}

	strat := &fakeStrategy{}
	pctx := provider.NewContext(provider.FirstAvailable)
	if err := pctx.Registry.Register(provider.Registration{Name: "aws-primary", Strategy: strat, Capabilities: []string{"aws"}}); err != nil {
		t.Fatalf("registering fake strategy: %v", err)
	}

	requests := memory.NewRequests()
	machines := memory.NewMachines()
	tplRepo := memory.NewTemplates()

	h := New(requests, machines, mgr, tplRepo, pctx, domain.NewInProcessPublisher(), nil)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }

	return &testEnv{h: h, requests: requests, machines: machines, tplRepo: tplRepo, strategy: strat, clock: clock}
}
