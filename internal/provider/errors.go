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

package provider

import "github.com/awslabs/open-resource-broker/internal/brokerror"

// ErrNoProviderAvailable is returned by Select when no registered
// strategy survives the filter/threshold pipeline.
func ErrNoProviderAvailable(policy SelectionPolicy) error {
	return brokerror.New(brokerror.NotFound, "no provider strategy available for policy "+string(policy))
}

// ErrProviderBusy is returned when a strategy's active-operation count
// is at its configured cap; the caller should treat this as transient
// backpressure and retry, possibly against a different strategy.
func ErrProviderBusy(name string) error {
	return brokerror.New(brokerror.ProviderTransient, "provider strategy "+name+" is at capacity").WithField("strategy", name)
}
