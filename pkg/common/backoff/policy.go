// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backoff

import (
	"time"
)

// Done is the delay returned once no more attempts are allowed.
const Done time.Duration = -1

// RetryPolicy is interface for defining retry policy.
type RetryPolicy interface {
	// CalculateNextDelay returns the delay before the next attempt given the
	// number of attempts made so far, or Done.
	CalculateNextDelay(attempts int) time.Duration
}

// NewRetryPolicy is used to create a new instance or RetryPolicy.
func NewRetryPolicy(maxAttempts int, retryInterval time.Duration) RetryPolicy {
	return &retryPolicy{
		maxAttempts:   maxAttempts,
		retryInterval: retryInterval,
	}
}

// NoRetry returns a policy which allows a single attempt.
func NoRetry() RetryPolicy {
	return NewRetryPolicy(1, 0)
}

// IsDone returns true iff the delay means no more attempts.
func IsDone(delay time.Duration) bool {
	return delay == Done
}

type retryPolicy struct {
	maxAttempts   int
	retryInterval time.Duration
}

// CalculateNextDelay returns next delay.
func (p *retryPolicy) CalculateNextDelay(attempts int) time.Duration {
	if attempts >= p.maxAttempts {
		return Done
	}
	return p.retryInterval
}
