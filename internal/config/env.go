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

// Package config loads the broker's environment-driven configuration: the
// active provider and storage backend selection, and the scheduler's
// work/conf/log directory variables. File-based configuration (template
// files, scheduler config) is handled by internal/template and is
// explicitly out of scope for this package.
package config

import (
	"log"
	"os"
)

// StorageType selects a repository backend.
type StorageType string

const (
	StorageMemory StorageType = "memory"
	StorageFile   StorageType = "file"
	StorageDynamo StorageType = "dynamodb"
)

// Config is the broker's environment-derived configuration.
type Config struct {
	// ProviderType selects the active cloud provider strategy (e.g. "aws").
	ProviderType string

	// StorageType selects the repository backend for Request and Machine
	// persistence.
	StorageType StorageType

	// StorageTablePrefix is prepended to KV-store table/collection names.
	StorageTablePrefix string

	// WorkDir, ConfDir, LogDir are the scheduler's work/conf/log
	// directories, read from the HF_PROVIDER_* family with fallback to
	// DEFAULT_*.
	WorkDir string
	ConfDir string
	LogDir  string
}

// Load reads the broker's configuration from the environment, applying the
// HF_-over-DEFAULT_ precedence rule for the scheduler directory variables
// (see DESIGN.md, Open Question #2) and logging each resolved value the
// way the routing config loader this is grounded on does.
func Load() Config {
	cfg := Config{
		ProviderType:       getEnvDefault("PROVIDER_TYPE", "aws"),
		StorageType:        StorageType(getEnvDefault("STORAGE_TYPE", string(StorageMemory))),
		StorageTablePrefix: os.Getenv("STORAGE_TABLE_PREFIX"),
		WorkDir:            firstNonEmpty(os.Getenv("HF_PROVIDER_WORKDIR"), os.Getenv("DEFAULT_PROVIDER_WORKDIR")),
		ConfDir:            firstNonEmpty(os.Getenv("HF_PROVIDER_CONFDIR"), os.Getenv("DEFAULT_PROVIDER_CONFDIR")),
		LogDir:             firstNonEmpty(os.Getenv("HF_PROVIDER_LOGDIR"), os.Getenv("DEFAULT_PROVIDER_LOGDIR")),
	}

	if !cfg.StorageType.valid() {
		log.Printf("[broker config] WARNING: invalid STORAGE_TYPE %q, using %q", cfg.StorageType, StorageMemory)
		cfg.StorageType = StorageMemory
	}

	log.Printf("[broker config] provider=%s storage=%s work_dir=%s conf_dir=%s log_dir=%s",
		cfg.ProviderType, cfg.StorageType, cfg.WorkDir, cfg.ConfDir, cfg.LogDir)

	return cfg
}

func (s StorageType) valid() bool {
	switch s {
	case StorageMemory, StorageFile, StorageDynamo:
		return true
	default:
		return false
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// firstNonEmpty returns the first non-empty string: the HF_-prefixed
// variable takes precedence over the DEFAULT_-prefixed one.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
