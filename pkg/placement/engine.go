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

package placement

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/offers"
	"github.com/uber/silo/pkg/placement/tasks"
)

// Engine represents a placement engine placing the tasks of a task service
// onto the offers of an offer service.
type Engine interface {
	// Place dequeues the tasks and runs scheduling cycles until every task
	// is assigned or can not be retried, then reports the placements.
	Place(ctx context.Context) (*Summary, error)
}

// Summary is the result of all the cycles run by Place.
type Summary struct {
	// Cycles is the number of scheduling cycles run.
	Cycles int
	// Assigned holds the committed assignments in commit order.
	Assigned []*models.AssignedTask
	// Unschedulable holds the tasks which were given up on.
	Unschedulable []*models.Task
}

// NewEngine creates a new placement engine.
func NewEngine(
	offerService offers.Service,
	taskService tasks.Service,
	scheduler *Scheduler) Engine {
	return &engine{
		offerService: offerService,
		taskService:  taskService,
		scheduler:    scheduler,
	}
}

type engine struct {
	offerService offers.Service
	taskService  tasks.Service
	scheduler    *Scheduler
}

// Place is an implementation of the Engine interface. Retryable tasks are
// placed again in a later cycle, with freshly acquired offers, after the
// longest retry delay of the tasks.
func (e *engine) Place(ctx context.Context) (*Summary, error) {
	pending, err := e.taskService.Dequeue(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	if len(pending) == 0 {
		log.Debug("No task to place")
		return summary, nil
	}

	for len(pending) > 0 {
		offers, err := e.offerService.Acquire(ctx)
		if err != nil {
			return summary, err
		}

		result, err := e.scheduler.Schedule(ctx, pending, offers)
		if result != nil {
			summary.Cycles++
			summary.Assigned = append(summary.Assigned, result.Assigned...)
		}
		if err != nil {
			return summary, err
		}

		retryable := make(map[string]bool, len(result.Retryable))
		for _, task := range result.Retryable {
			retryable[task.ID()] = true
		}
		var delay time.Duration
		for _, outcome := range result.Outcomes {
			if outcome.State != Unschedulable {
				continue
			}
			if !retryable[outcome.Task.ID()] {
				summary.Unschedulable = append(summary.Unschedulable, outcome.Task)
			} else if outcome.RetryAfter > delay {
				delay = outcome.RetryAfter
			}
		}

		pending = result.Retryable
		if len(pending) == 0 {
			break
		}

		log.WithFields(log.Fields{
			"cycle_id":      result.ID,
			"num_retryable": len(pending),
			"delay":         delay,
		}).Info("Retrying unschedulable tasks")
		if err := wait(ctx, delay); err != nil {
			summary.Unschedulable = append(summary.Unschedulable, pending...)
			return summary, err
		}
	}

	if err := e.taskService.SetPlacements(ctx, summary.Assigned, summary.Unschedulable); err != nil {
		return summary, err
	}
	return summary, nil
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
