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

// Package main is the entry point for brokerd, the resource broker
// daemon.
//
// brokerd wires together the template manager, repositories, the
// provider context (with AWS registered as the initial strategy), the
// command/query bus, and the application handlers, then serves the
// Symphony Host Factory-compatible scheduler protocol as newline-delimited
// JSON over stdin/stdout: each line is `{"operation": "...", "payload":
// {...}}`, answered with one line of `{"result": ...}` or `{"error":
// "..."}`.
//
// Environment Variables:
//
//	PROVIDER_TYPE - active cloud provider strategy (default: aws)
//	STORAGE_TYPE - repository backend: memory|file|dynamodb (default: memory)
//	STORAGE_TABLE_PREFIX - prefix for file/table names under the storage backend
//	HF_PROVIDER_WORKDIR / DEFAULT_PROVIDER_WORKDIR - scheduler work directory
//	HF_PROVIDER_CONFDIR / DEFAULT_PROVIDER_CONFDIR - template configuration directory
//	HF_PROVIDER_LOGDIR / DEFAULT_PROVIDER_LOGDIR - log directory
//	AWS_REGION - region passed to the AWS strategy (default: us-east-1)
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsdynamo "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/config"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/handlers"
	"github.com/awslabs/open-resource-broker/internal/logging"
	"github.com/awslabs/open-resource-broker/internal/provider"
	"github.com/awslabs/open-resource-broker/internal/provider/aws"
	"github.com/awslabs/open-resource-broker/internal/repository"
	"github.com/awslabs/open-resource-broker/internal/repository/dynamo"
	"github.com/awslabs/open-resource-broker/internal/repository/file"
	"github.com/awslabs/open-resource-broker/internal/repository/memory"
	"github.com/awslabs/open-resource-broker/internal/template"
)

const (
	templateTTL       = 30 * time.Second
	healthCheckPeriod = 30 * time.Second
)

func main() {
	logger := logging.New("brokerd")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requests, machines, err := buildRepositories(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "building repositories", err, nil)
		os.Exit(1)
	}

	templates := template.NewManager(cfg.ConfDir, cfg.ProviderType, templateTTL)
	if err := templates.Reload(); err != nil {
		logger.Warn(ctx, "initial template load failed, continuing with an empty set", map[string]interface{}{"error": err.Error()})
	}

	templateRepo, err := buildTemplateRepository(cfg)
	if err != nil {
		logger.Error(ctx, "building template repository", err, nil)
		os.Exit(1)
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
		logger.Error(ctx, "registering initial provider strategy", err, nil)
		os.Exit(1)
	}

	checker := provider.NewHealthChecker(providers.Registry, healthCheckPeriod)
	go checker.Run(ctx)

	logger.Info(ctx, "brokerd ready", map[string]interface{}{
		"provider_type": cfg.ProviderType,
		"storage_type":  string(cfg.StorageType),
	})

	if err := serve(ctx, b, logger); err != nil {
		logger.Error(ctx, "adapter loop exited with error", err, nil)
		os.Exit(1)
	}
}

// buildRepositories selects the Request/Machine repository backend named
// by cfg.StorageType. Templates never use the dynamo backend (see
// internal/repository's TemplateRepository doc), so buildTemplateRepository
// handles that pair separately.
func buildRepositories(ctx context.Context, cfg config.Config) (repository.RequestRepository, repository.MachineRepository, error) {
	switch cfg.StorageType {
	case config.StorageFile:
		reqPath := cfg.StorageTablePrefix + "requests.json"
		machPath := cfg.StorageTablePrefix + "machines.json"
		reqs, err := file.NewRequests(reqPath)
		if err != nil {
			return nil, nil, err
		}
		machs, err := file.NewMachines(machPath)
		if err != nil {
			return nil, nil, err
		}
		return reqs, machs, nil

	case config.StorageDynamo:
		awsCfg, err := awsdynamo.LoadDefaultConfig(ctx, awsdynamo.WithRegion(awsRegion()))
		if err != nil {
			return nil, nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		reqTable := cfg.StorageTablePrefix + "requests"
		machTable := cfg.StorageTablePrefix + "machines"
		return dynamo.NewRequests(client, reqTable), dynamo.NewMachines(client, machTable), nil

	default:
		return memory.NewRequests(), memory.NewMachines(), nil
	}
}

// buildTemplateRepository picks the administrative template backend: file
// when STORAGE_TYPE=file, memory otherwise (dynamodb falls back to memory
// since no dynamo.Templates implementation exists).
func buildTemplateRepository(cfg config.Config) (repository.TemplateRepository, error) {
	if cfg.StorageType == config.StorageFile {
		return file.NewTemplates(cfg.StorageTablePrefix + "templates.json")
	}
	return memory.NewTemplates(), nil
}

// awsStrategyFactory closes over ctx so a RegisterProviderStrategy command
// issued later (a second AWS account, say) can still build a live Strategy
// without handlers importing internal/provider/aws directly.
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
