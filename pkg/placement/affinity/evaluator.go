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

	"github.com/pkg/errors"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/registry"
)

const (
	// Hard is the mode of the eligibility filter.
	Hard = Mode("hard")
	// Soft is the mode of the desirability score.
	Soft = Mode("soft")

	// MaxFitness is the fitness of a host in the rack of the silo, or of any
	// host for a new silo.
	MaxFitness = 1.0
	// MinFitness is the fitness of a host outside the rack of the silo.
	MinFitness = 0.0

	// ReasonNewSilo is the reason given when the silo has no committed task.
	ReasonNewSilo = "new silo"
	// ReasonMatch is the reason given when the host is in the rack of the silo.
	ReasonMatch = "rack matches existing silo"
	// ReasonMismatch is the reason given when the host is outside the rack of the silo.
	ReasonMismatch = "rack mismatch for existing silo"
)

// Mode selects how rack affinity is enforced.
type Mode string

// Result is the outcome of evaluating one host for one task.
type Result struct {
	// Eligible is false iff the host must not be used for the task.
	Eligible bool
	// Fitness is the desirability of the host in [0, 1].
	Fitness float64
	// Reason is a human readable explanation of the result.
	Reason string
}

// Evaluator evaluates the rack affinity of a candidate host for a task given
// the tasks committed so far. Evaluators are stateless, calling Evaluate
// twice with the same inputs gives the same result, and they never change
// the registry.
type Evaluator interface {
	// Name returns the name of the evaluator.
	Name() string

	// Evaluate returns the result of placing the task on the host of the offer.
	Evaluate(task *models.Task, offer *models.Offer, state registry.Reader) Result
}

// New returns the evaluator for the given mode, which evaluates affinity on
// the given offer attribute. An empty attribute means the rack attribute.
func New(mode Mode, attribute string) (Evaluator, error) {
	switch mode {
	case Hard:
		return NewHardConstraint(attribute), nil
	case Soft:
		return NewSoftConstraint(attribute), nil
	}
	return nil, errors.Errorf("unknown affinity mode %q", mode)
}

// comparison is the shared decision of both modes.
type comparison struct {
	newSilo bool
	match   bool
	reason  string
}

// compare compares the attribute of the candidate host with the attribute of
// the host of the first committed task of the silo.
func compare(
	attribute string,
	task *models.Task,
	offer *models.Offer,
	state registry.Reader) comparison {
	existing, ok := state.FindByGroup(task.Group())
	if !ok {
		return comparison{newSilo: true, match: true, reason: ReasonNewSilo}
	}

	candidate, ok := attributeValue(attribute, offer)
	if !ok {
		return comparison{
			reason: fmt.Sprintf("host %s has no %q attribute", offer.Hostname(), attribute),
		}
	}

	var committed string
	if attribute == models.RackAttribute {
		committed = existing.Rack()
	} else if committed, ok = attributeValue(attribute, existing.Offer()); !ok {
		return comparison{
			reason: fmt.Sprintf("silo host %s has no %q attribute",
				existing.Offer().Hostname(), attribute),
		}
	}

	if candidate == committed {
		return comparison{match: true, reason: ReasonMatch}
	}
	return comparison{reason: ReasonMismatch}
}

func attributeValue(attribute string, offer *models.Offer) (string, bool) {
	value, ok := offer.Attribute(attribute)
	if !ok {
		return "", false
	}
	return value.Value(), true
}

func normalize(attribute string) string {
	if attribute == "" {
		return models.RackAttribute
	}
	return attribute
}
