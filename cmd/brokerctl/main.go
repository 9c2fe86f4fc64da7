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

// Package main implements brokerctl, an operator CLI for the resource
// broker. brokerctl is provided for reference and manual operation; it
// is not part of the core engine (spec.md §1) and is not what the
// scheduler talks to — that is brokerd's stdin/stdout wire protocol.
//
// brokerctl wires its own copy of the repositories/handlers/bus, exactly
// the way brokerd does, so it can be run standalone against the same
// file or DynamoDB-backed state brokerd is using.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes mirror spec.md §6's reference table for the CLI front-end.
const (
	exitSuccess         = 0
	exitUserConfigError = 1
	exitValidationError = 2
	exitProviderError   = 3
	exitTimeoutOrCancel = 4
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "brokerctl",
		Short: "Operator CLI for the resource broker",
		Long:  "brokerctl is a reference command-line client for the resource broker's command/query bus. It is not part of the core engine.",
	}

	rootCmd.AddCommand(
		requestMachinesCmd(),
		returnMachinesCmd(),
		statusCmd(),
		templatesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserConfigError)
	}
}
