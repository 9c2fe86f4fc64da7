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

package main

import (
	"context"
	"os"
	"time"

	awssdkconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/config"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/handlers"
	"github.com/awslabs/open-resource-broker/internal/provider"
	"github.com/awslabs/open-resource-broker/internal/provider/aws"
	"github.com/awslabs/open-resource-broker/internal/repository"
	"github.com/awslabs/open-resource-broker/internal/repository/dynamo"
	"github.com/awslabs/open-resource-broker/internal/repository/file"
	"github.com/awslabs/open-resource-broker/internal/repository/memory"
	"github.com/awslabs/open-resource-broker/internal/template"
)

const templateTTL = 30 * time.Second

// buildBus wires a standalone Handlers/Bus pair against the same
// environment-selected repository backend brokerd uses, so brokerctl can
// be pointed at brokerd's file or DynamoDB state. Each brokerctl
// invocation is a fresh process: a command that kicks off background
// provisioning (requestMachines, returnMachines) will not observe that
// work finish before the process exits — use getRequestStatus in a
// later invocation to check on it, the way the scheduler does.
func buildBus(ctx context.Context) (*bus.Bus, error) {
	cfg := config.Load()

	requests, machines, err := buildRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	templates := template.NewManager(cfg.ConfDir, cfg.ProviderType, templateTTL)
	_ = templates.Reload()

	templateRepo, err := buildTemplateRepository(cfg)
	if err != nil {
		return nil, err
	}

	providers := provider.NewContext(provider.FirstAvailable)
	publisher := domain.NewInProcessPublisher()

	h := handlers.New(requests, machines, templates, templateRepo, providers, publisher, nil)
	h.RegisterStrategyFactory("aws", awsStrategyFactory(ctx))

	b := bus.New()
	h.Register(b)

	if _, err := bus.Dispatch[bus.RegisterProviderStrategy, bool](ctx, b, bus.RegisterProviderStrategy{
		InstanceName: cfg.ProviderType,
		ProviderType: cfg.ProviderType,
		Config:       map[string]string{"region": awsRegion()},
	}); err != nil {
		return nil, err
	}

	return b, nil
}

func buildRepositories(ctx context.Context, cfg config.Config) (repository.RequestRepository, repository.MachineRepository, error) {
	switch cfg.StorageType {
	case config.StorageFile:
		reqs, err := file.NewRequests(cfg.StorageTablePrefix + "requests.json")
		if err != nil {
			return nil, nil, err
		}
		machs, err := file.NewMachines(cfg.StorageTablePrefix + "machines.json")
		if err != nil {
			return nil, nil, err
		}
		return reqs, machs, nil

	case config.StorageDynamo:
		awsCfg, err := awssdkconfig.LoadDefaultConfig(ctx, awssdkconfig.WithRegion(awsRegion()))
		if err != nil {
			return nil, nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return dynamo.NewRequests(client, cfg.StorageTablePrefix+"requests"),
			dynamo.NewMachines(client, cfg.StorageTablePrefix+"machines"), nil

	default:
		return memory.NewRequests(), memory.NewMachines(), nil
	}
}

func buildTemplateRepository(cfg config.Config) (repository.TemplateRepository, error) {
	if cfg.StorageType == config.StorageFile {
		return file.NewTemplates(cfg.StorageTablePrefix + "templates.json")
	}
	return memory.NewTemplates(), nil
}

func awsStrategyFactory(ctx context.Context) handlers.StrategyFactory {
	return func(cfg map[string]string) (provider.Strategy, error) {
		region := cfg["region"]
		if region == "" {
			region = awsRegion()
		}
		awsCfg := aws.DefaultConfig(region)
		if profile := cfg["profile"]; profile != "" {
			awsCfg.Profile = profile
		}
		return aws.New(ctx, awsCfg)
	}
}

func awsRegion() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_DEFAULT_REGION"); r != "" {
		return r
	}
	return "us-east-1"
}
