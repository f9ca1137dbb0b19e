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

package firstfit

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/uber/silo/pkg/placement/affinity"
	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/plugins"
	"github.com/uber/silo/pkg/placement/registry"
	"github.com/uber/silo/pkg/placement/scalar"
)

const (
	_defaultConcurrency    = 8
	_defaultAffinityWeight = 1.0
)

// weighted is a fitness calculator with its weight in the ranking.
type weighted struct {
	evaluator affinity.Evaluator
	weight    float64
}

// Option configures the first fit strategy.
type Option func(*firstFit)

// WithConcurrency sets the maximum number of go-routines evaluating offers
// for a task.
func WithConcurrency(concurrency int) Option {
	return func(f *firstFit) {
		if concurrency > 0 {
			f.concurrency = concurrency
		}
	}
}

// WithAffinityWeight sets the weight of the affinity evaluator given to
// ScheduleOnce in the ranking of the offers.
func WithAffinityWeight(weight float64) Option {
	return func(f *firstFit) {
		if weight >= 0 {
			f.affinityWeight = weight
		}
	}
}

// WithFitness adds an extra evaluator to the ranking of the offers. An offer
// must be eligible for every evaluator to be a candidate.
func WithFitness(evaluator affinity.Evaluator, weight float64) Option {
	return func(f *firstFit) {
		f.extra = append(f.extra, weighted{evaluator: evaluator, weight: weight})
	}
}

// WithLeaseReject sets the callback invoked for every offer which can not
// fit a task.
func WithLeaseReject(reject plugins.LeaseRejectFunc) Option {
	return func(f *firstFit) {
		if reject != nil {
			f.reject = reject
		}
	}
}

// New creates a new first fit placement strategy.
func New(opts ...Option) plugins.Engine {
	f := &firstFit{
		concurrency:    _defaultConcurrency,
		affinityWeight: _defaultAffinityWeight,
		reject:         plugins.NoopLeaseReject,
	}
	for _, opt := range opts {
		opt(f)
	}
	log.WithFields(log.Fields{
		"concurrency":     f.concurrency,
		"affinity_weight": f.affinityWeight,
		"extra_fitness":   len(f.extra),
	}).Info("Using first fit placement strategy.")
	return f
}

// firstFit places every task on the fittest offer which has enough resources
// left and is eligible, ties are broken by the order of the offers.
type firstFit struct {
	concurrency    int
	affinityWeight float64
	extra          []weighted
	reject         plugins.LeaseRejectFunc
}

// candidate is the evaluation of one offer for one task.
type candidate struct {
	fits     bool
	eligible bool
	score    float64
}

// ScheduleOnce is an implementation of the plugins.Engine interface. Tasks
// are placed in order, and the resources of a placed task are taken from its
// host before the next task is placed. Placements made in the same call are
// not visible to the evaluators since they are not committed yet.
func (f *firstFit) ScheduleOnce(
	ctx context.Context,
	tasks []*models.Task,
	offers []*models.Offer,
	state registry.Reader,
	evaluator affinity.Evaluator,
) (map[string]*models.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	used := usage(state)
	placements := make(map[string]*models.Offer, len(tasks))
	for _, task := range tasks {
		candidates := f.evaluate(task, offers, used, state, evaluator)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := -1
		for i, c := range candidates {
			if !c.fits {
				f.reject(offers[i].ID())
				continue
			}
			if !c.eligible {
				continue
			}
			if best < 0 || c.score > candidates[best].score {
				best = i
			}
		}

		if best < 0 {
			log.WithFields(log.Fields{
				"task_id": task.ID(),
				"group":   task.Group(),
				"offers":  len(offers),
			}).Debug("No offer fits task")
			continue
		}

		offer := offers[best]
		placements[task.ID()] = offer
		used[offer.Hostname()] = used[offer.Hostname()].Add(task.Resources())
		log.WithFields(log.Fields{
			"task_id":  task.ID(),
			"offer_id": offer.ID(),
			"hostname": offer.Hostname(),
			"score":    candidates[best].score,
		}).Debug("First fit strategy placed task")
	}
	return placements, nil
}

// evaluate evaluates every offer for the task, in batches of offers run in
// parallel. It returns after every batch is done.
func (f *firstFit) evaluate(
	task *models.Task,
	offers []*models.Offer,
	used map[string]scalar.Resources,
	state registry.Reader,
	evaluator affinity.Evaluator) []candidate {
	candidates := make([]candidate, len(offers))

	nOffers := len(offers)
	batches := f.concurrency
	if batches > nOffers {
		batches = nOffers
	}
	if batches == 0 {
		return candidates
	}
	size := nOffers / batches
	increment := nOffers % batches

	wg := new(sync.WaitGroup)
	start := 0
	for i := 0; i < batches; i++ {
		end := start + size
		if increment > 0 {
			end++
			increment--
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for j := start; j < end; j++ {
				candidates[j] = f.evaluateOffer(task, offers[j], used, state, evaluator)
			}
		}(start, end)
		start = end
	}
	wg.Wait()
	return candidates
}

// evaluateOffer only reads used, which is only written between calls to
// evaluate.
func (f *firstFit) evaluateOffer(
	task *models.Task,
	offer *models.Offer,
	used map[string]scalar.Resources,
	state registry.Reader,
	evaluator affinity.Evaluator) candidate {
	available := offer.Resources().Subtract(used[offer.Hostname()])
	if _, ok := available.TrySubtract(task.Resources()); !ok {
		return candidate{}
	}

	calculators := make([]weighted, 0, len(f.extra)+1)
	if evaluator != nil {
		calculators = append(calculators,
			weighted{evaluator: evaluator, weight: f.affinityWeight})
	}
	calculators = append(calculators, f.extra...)

	var total, weights float64
	for _, calculator := range calculators {
		result := calculator.evaluator.Evaluate(task, offer, state)
		if !result.Eligible {
			return candidate{fits: true}
		}
		total += calculator.weight * result.Fitness
		weights += calculator.weight
	}

	score := 0.0
	if weights > 0 {
		score = total / weights
	}
	return candidate{fits: true, eligible: true, score: score}
}

// usage returns the resources used on every host by the committed tasks.
func usage(state registry.Reader) map[string]scalar.Resources {
	used := make(map[string]scalar.Resources)
	state.Each(func(assigned *models.AssignedTask) bool {
		hostname := assigned.Offer().Hostname()
		used[hostname] = used[hostname].Add(assigned.Task().Resources())
		return true
	})
	return used
}
