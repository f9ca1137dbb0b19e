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

package affinity

import (
	"fmt"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/registry"
)

// HardConstraint is an eligibility filter, a host is eligible iff the silo
// of the task is new or the host is in the rack of the silo. It never looks
// at capacity.
type HardConstraint struct {
	attribute string
}

var _ Evaluator = HardConstraint{}

// NewHardConstraint creates a hard constraint on the given attribute.
func NewHardConstraint(attribute string) HardConstraint {
	return HardConstraint{attribute: normalize(attribute)}
}

// Name implements Evaluator.
func (c HardConstraint) Name() string {
	return fmt.Sprintf("hard_%s_affinity", c.attribute)
}

// Evaluate implements Evaluator.
func (c HardConstraint) Evaluate(
	task *models.Task,
	offer *models.Offer,
	state registry.Reader) Result {
	cmp := compare(c.attribute, task, offer, state)
	if cmp.match {
		return Result{Eligible: true, Fitness: MaxFitness, Reason: cmp.reason}
	}
	return Result{Eligible: false, Fitness: MinFitness, Reason: cmp.reason}
}
