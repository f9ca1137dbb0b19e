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

package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/uber/silo/pkg/common/backoff"
	"github.com/uber/silo/pkg/common/logging"
	"github.com/uber/silo/pkg/common/metrics"
	"github.com/uber/silo/pkg/placement/affinity"
	"github.com/uber/silo/pkg/placement/models"
)

// Config holds all configs to run the placement engine.
type Config struct {
	Metrics   metrics.Config  `yaml:"metrics"`
	Logging   logging.Config  `yaml:"logging"`
	Placement PlacementConfig `yaml:"placement"`
}

// PlacementConfig is Placement engine specific config
type PlacementConfig struct {
	// HTTPPort serves the metrics and logging endpoints when non zero.
	HTTPPort int `yaml:"http_port" validate:"min=0"`

	// AffinityMode is either hard or soft.
	AffinityMode affinity.Mode `yaml:"affinity_mode"`

	// AffinityAttribute is the offer attribute holding the rack of a host.
	AffinityAttribute string `yaml:"affinity_attribute"`

	// AffinityWeight is the weight of the affinity fitness when ranking
	// offers.
	AffinityWeight float64 `yaml:"affinity_weight" validate:"min=0"`

	// PlacementTimeout bounds every call to the placement engine, zero
	// means no bound.
	PlacementTimeout time.Duration `yaml:"placement_timeout"`

	// Concurrency is the maximal number of go-routines evaluating offers.
	Concurrency int `yaml:"concurrency" validate:"min=0"`

	// MaxAttempts is the maximal number of cycles a task is tried in
	// before it is given up on.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0"`

	// RetryInterval is the delay before an unschedulable task is retried.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// Default returns the placement config used when nothing is configured.
func Default() PlacementConfig {
	return PlacementConfig{
		AffinityMode:      affinity.Hard,
		AffinityAttribute: models.RackAttribute,
		AffinityWeight:    1,
		Concurrency:       8,
		MaxAttempts:       1,
	}
}

// Validate checks the values which can not be checked by field tags.
func (c *PlacementConfig) Validate() error {
	switch c.AffinityMode {
	case affinity.Hard, affinity.Soft:
	default:
		return errors.Errorf("unknown affinity mode %q", c.AffinityMode)
	}
	if c.PlacementTimeout < 0 {
		return errors.Errorf("negative placement timeout %v", c.PlacementTimeout)
	}
	if c.RetryInterval < 0 {
		return errors.Errorf("negative retry interval %v", c.RetryInterval)
	}
	return nil
}

// Evaluator returns the affinity evaluator of the config.
func (c *PlacementConfig) Evaluator() (affinity.Evaluator, error) {
	return affinity.New(c.AffinityMode, c.AffinityAttribute)
}

// RetryPolicy returns the retry policy of unschedulable tasks.
func (c *PlacementConfig) RetryPolicy() backoff.RetryPolicy {
	if c.MaxAttempts <= 1 {
		return backoff.NoRetry()
	}
	return backoff.NewRetryPolicy(c.MaxAttempts, c.RetryInterval)
}
