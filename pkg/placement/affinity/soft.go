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

// SoftConstraint is a fitness calculator, every host is eligible and the
// fitness is MaxFitness for a host in the rack of the silo (or any host of a
// new silo) and MinFitness otherwise. The score is binary, any weighting with
// other fitness calculators is up to the placement engine.
type SoftConstraint struct {
	attribute string
}

var _ Evaluator = SoftConstraint{}

// NewSoftConstraint creates a soft constraint on the given attribute.
func NewSoftConstraint(attribute string) SoftConstraint {
	return SoftConstraint{attribute: normalize(attribute)}
}

// Name implements Evaluator.
func (c SoftConstraint) Name() string {
	return fmt.Sprintf("soft_%s_affinity", c.attribute)
}

// Evaluate implements Evaluator.
func (c SoftConstraint) Evaluate(
	task *models.Task,
	offer *models.Offer,
	state registry.Reader) Result {
	cmp := compare(c.attribute, task, offer, state)
	fitness := MinFitness
	if cmp.match {
		fitness = MaxFitness
	}
	return Result{Eligible: true, Fitness: fitness, Reason: cmp.reason}
}
