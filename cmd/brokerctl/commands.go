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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/wire"
)

func requestMachinesCmd() *cobra.Command {
	var templateID string
	var count int
	var tags []string

	cmd := &cobra.Command{
		Use:   "request-machines",
		Short: "Submit a requestMachines operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := buildBus(ctx)
			if err != nil {
				return exitWith(exitUserConfigError, err)
			}

			req := wire.RequestMachinesRequest{
				TemplateID:   templateID,
				MachineCount: count,
				Tags:         parseTags(tags),
			}
			result, err := bus.Dispatch[bus.CreateRequest, bus.CreateRequestResult](ctx, b, req.ToCommand())
			if err != nil {
				return exitWith(exitCodeFor(err), err)
			}
			return printJSON(wire.FromCreateRequestResult(result))
		},
	}
	cmd.Flags().StringVar(&templateID, "template-id", "", "template id to provision against")
	cmd.Flags().IntVar(&count, "count", 1, "number of machines to request")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "key=value tag, may be repeated")
	cmd.MarkFlagRequired("template-id")
	return cmd
}

func returnMachinesCmd() *cobra.Command {
	var machineIDs []string

	cmd := &cobra.Command{
		Use:   "return-machines",
		Short: "Submit a returnMachines operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := buildBus(ctx)
			if err != nil {
				return exitWith(exitUserConfigError, err)
			}

			req := wire.ReturnMachinesRequest{MachineIDs: machineIDs}
			result, err := bus.Dispatch[bus.ReturnMachines, bus.CreateRequestResult](ctx, b, req.ToCommand())
			if err != nil {
				return exitWith(exitCodeFor(err), err)
			}
			return printJSON(wire.FromReturnResult(result))
		},
	}
	cmd.Flags().StringArrayVar(&machineIDs, "machine-id", nil, "machine id to return, may be repeated")
	cmd.MarkFlagRequired("machine-id")
	return cmd
}

func statusCmd() *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Submit a getRequestStatus operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := buildBus(ctx)
			if err != nil {
				return exitWith(exitUserConfigError, err)
			}

			statusResult, err := bus.Dispatch[bus.GetRequestStatus, bus.GetRequestStatusResult](ctx, b, bus.GetRequestStatus{RequestID: requestID})
			if err != nil {
				return exitWith(exitCodeFor(err), err)
			}
			machines, err := bus.Dispatch[bus.ListMachinesByRequest, []domain.Machine](ctx, b, bus.ListMachinesByRequest{RequestID: requestID})
			if err != nil {
				return exitWith(exitCodeFor(err), err)
			}
			return printJSON(wire.FromRequestStatus(statusResult, machines))
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id to check")
	cmd.MarkFlagRequired("request-id")
	return cmd
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Submit a getAvailableTemplates operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := buildBus(ctx)
			if err != nil {
				return exitWith(exitUserConfigError, err)
			}

			templates, err := bus.Dispatch[bus.ListTemplates, []domain.Template](ctx, b, bus.ListTemplates{})
			if err != nil {
				return exitWith(exitCodeFor(err), err)
			}
			return printJSON(wire.FromTemplates(templates))
		},
	}
	return cmd
}

func parseTags(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		tags[k] = v
	}
	return tags
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// exitWith prints err to stderr and terminates with code, the reference
// CLI's mapping onto spec.md §6's exit code table. cobra's own error
// return path only knows success/failure, so the process exits directly
// here rather than propagating code through RunE's error.
func exitWith(code int, err error) error {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
	return nil
}

// exitCodeFor maps a dispatched operation's error onto spec.md §6's exit
// code table.
func exitCodeFor(err error) int {
	switch brokerror.Of(err) {
	case brokerror.Validation, brokerror.NotFound, brokerror.Conflict:
		return exitValidationError
	case brokerror.ProviderTransient, brokerror.ProviderPermanent, brokerror.CircuitOpen:
		return exitProviderError
	case brokerror.Timeout, brokerror.Cancelled:
		return exitTimeoutOrCancel
	default:
		return exitUserConfigError
	}
}
