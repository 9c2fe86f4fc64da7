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

package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/awslabs/open-resource-broker/internal/brokerror"
)

// retryableEC2Codes are the AWS error codes documented as safe to retry:
// throttling, transient capacity, service-side, and request-limit errors.
// Entries mapped to false are known permanent codes. An unlisted code is
// classified ProviderTransient if it mentions throttling or capacity, and
// ProviderPermanent otherwise (see classifyError).
var retryableEC2Codes = map[string]bool{
	"RequestLimitExceeded":         true,
	"Throttling":                   true,
	"ThrottlingException":          true,
	"InsufficientInstanceCapacity": true,
	"InsufficientCapacity":         true,
	"InsufficientHostCapacity":     true,
	"MaxSpotInstanceCountExceeded": true,
	"SpotMaxPriceTooLow":           true,
	"InternalError":                true,
	"RequestExpired":               true,
	"EC2ThrottledException":        true,
	"ServiceUnavailable":           true,
	"InternalServerError":          true,
	"RequestTimeout":               true,
	"PriorRequestNotComplete":      true,
	"RequestTimeTooSkewed":         true,
	"VcpuLimitExceeded":            false,
	"UnauthorizedOperation":        false,
	"AuthFailure":                  false,
	"InvalidParameterValue":        false,
	"InvalidAMIID.NotFound":        false,
	"InvalidSubnetID.NotFound":     false,
	"InvalidGroup.NotFound":        false,
}

// classifyError turns an AWS SDK error into a *brokerror.Error, choosing
// ProviderTransient for retryable codes and ProviderPermanent otherwise.
// A non-API error (network failure, context deadline) is treated as
// transient since it carries no AWS error code to classify.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return brokerror.Wrap(brokerror.ProviderTransient, op+" failed", err)
	}

	code := apiErr.ErrorCode()
	if retryable, known := retryableEC2Codes[code]; known {
		if retryable {
			return brokerror.Wrap(brokerror.ProviderTransient, op+" failed: "+code, err)
		}
		return brokerror.Wrap(brokerror.ProviderPermanent, op+" failed: "+code, err)
	}

	lower := strings.ToLower(code)
	if strings.Contains(lower, "throttl") || strings.Contains(lower, "capacity") {
		return brokerror.Wrap(brokerror.ProviderTransient, op+" failed: "+code, err)
	}
	return brokerror.Wrap(brokerror.ProviderPermanent, op+" failed: "+code, err)
}
