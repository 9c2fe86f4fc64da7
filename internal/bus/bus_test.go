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

package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_RoutesToRegisteredHandler(t *testing.T) {
	b := New()
	Register(b, func(ctx context.Context, cmd GetRequest) (GetRequestStatusResult, error) {
		return GetRequestStatusResult{RequestID: cmd.RequestID}, nil
	})

	result, err := Dispatch[GetRequest, GetRequestStatusResult](context.Background(), b, GetRequest{RequestID: "req-1"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", result.RequestID)
}

func TestDispatch_HandlerNotFound(t *testing.T) {
	b := New()
	_, err := Dispatch[GetRequest, GetRequestStatusResult](context.Background(), b, GetRequest{RequestID: "req-1"})
	require.Error(t, err)

	var notFound *HandlerNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRegister_LastWriteWins(t *testing.T) {
	b := New()
	Register(b, func(ctx context.Context, cmd GetRequest) (GetRequestStatusResult, error) {
		return GetRequestStatusResult{RequestID: "first"}, nil
	})
	Register(b, func(ctx context.Context, cmd GetRequest) (GetRequestStatusResult, error) {
		return GetRequestStatusResult{RequestID: "second"}, nil
	})

	result, err := Dispatch[GetRequest, GetRequestStatusResult](context.Background(), b, GetRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", result.RequestID)
}

func TestRegistered(t *testing.T) {
	b := New()
	assert.False(t, Registered[GetRequest](b))

	Register(b, func(ctx context.Context, cmd GetRequest) (GetRequestStatusResult, error) {
		return GetRequestStatusResult{}, nil
	})
	assert.True(t, Registered[GetRequest](b))
}

func TestDispatch_DistinctTypesDoNotCollide(t *testing.T) {
	b := New()
	Register(b, func(ctx context.Context, cmd GetRequest) (GetRequestStatusResult, error) {
		return GetRequestStatusResult{RequestID: "from-get-request"}, nil
	})
	Register(b, func(ctx context.Context, cmd GetRequestStatus) (GetRequestStatusResult, error) {
		return GetRequestStatusResult{RequestID: "from-get-request-status"}, nil
	})

	r1, err := Dispatch[GetRequest, GetRequestStatusResult](context.Background(), b, GetRequest{})
	require.NoError(t, err)
	r2, err := Dispatch[GetRequestStatus, GetRequestStatusResult](context.Background(), b, GetRequestStatus{})
	require.NoError(t, err)

	assert.Equal(t, "from-get-request", r1.RequestID)
	assert.Equal(t, "from-get-request-status", r2.RequestID)
}
