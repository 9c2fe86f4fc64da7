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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/awslabs/open-resource-broker/internal/bus"
	"github.com/awslabs/open-resource-broker/internal/domain"
	"github.com/awslabs/open-resource-broker/internal/logging"
	"github.com/awslabs/open-resource-broker/internal/wire"
)

// envelope is one line of the scheduler wire protocol: an operation name
// plus its JSON payload, answered with a result or error envelope on
// stdout.
type envelope struct {
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

type responseEnvelope struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// serve reads one envelope per line from stdin and writes one response
// envelope per line to stdout until EOF or ctx is cancelled, the
// newline-delimited-JSON framing a Host Factory scriptInterface executor
// can drive over a long-lived pipe.
func serve(ctx context.Context, b *bus.Bus, logger *logging.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			writeResponse(writer, responseEnvelope{Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}

		result, err := dispatchOperation(ctx, b, env.Operation, env.Payload)
		if err != nil {
			logger.Warn(ctx, "operation failed", map[string]interface{}{"operation": env.Operation, "error": err.Error()})
			writeResponse(writer, responseEnvelope{Error: err.Error()})
			continue
		}
		writeResponse(writer, responseEnvelope{Result: result})
	}

	return scanner.Err()
}

func writeResponse(w *bufio.Writer, resp responseEnvelope) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"error":"failed to marshal response"}`)
	}
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}

// dispatchOperation maps one scheduler operation name onto its
// internal/wire conversion and the matching bus.Dispatch call.
func dispatchOperation(ctx context.Context, b *bus.Bus, operation string, payload json.RawMessage) (any, error) {
	switch operation {
	case "requestMachines":
		var req wire.RequestMachinesRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("requestMachines: %w", err)
		}
		result, err := bus.Dispatch[bus.CreateRequest, bus.CreateRequestResult](ctx, b, req.ToCommand())
		if err != nil {
			return nil, err
		}
		return wire.FromCreateRequestResult(result), nil

	case "returnMachines":
		var req wire.ReturnMachinesRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("returnMachines: %w", err)
		}
		result, err := bus.Dispatch[bus.ReturnMachines, bus.CreateRequestResult](ctx, b, req.ToCommand())
		if err != nil {
			return nil, err
		}
		return wire.FromReturnResult(result), nil

	case "getRequestStatus":
		var req wire.GetRequestStatusRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("getRequestStatus: %w", err)
		}
		statusResult, err := bus.Dispatch[bus.GetRequestStatus, bus.GetRequestStatusResult](ctx, b, req.ToQuery())
		if err != nil {
			return nil, err
		}
		machines, err := bus.Dispatch[bus.ListMachinesByRequest, []domain.Machine](ctx, b, bus.ListMachinesByRequest{RequestID: req.RequestID})
		if err != nil {
			return nil, err
		}
		return wire.FromRequestStatus(statusResult, machines), nil

	case "getAvailableTemplates":
		templates, err := bus.Dispatch[bus.ListTemplates, []domain.Template](ctx, b, bus.ListTemplates{})
		if err != nil {
			return nil, err
		}
		return wire.FromTemplates(templates), nil

	default:
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
}
