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

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/uber/silo/pkg/common/backoff"
	"github.com/uber/silo/pkg/common/statemachine"
	"github.com/uber/silo/pkg/placement/affinity"
	"github.com/uber/silo/pkg/placement/metrics"
	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/plugins"
	"github.com/uber/silo/pkg/placement/registry"
)

const (
	// Pending is the state of a submitted task not yet looked at.
	Pending = statemachine.State("PENDING")
	// Evaluating is the state of a task while the placement engine runs.
	Evaluating = statemachine.State("EVALUATING")
	// Assigned is the state of a task committed to a host.
	Assigned = statemachine.State("ASSIGNED")
	// Unschedulable is the state of a task no host was found for.
	Unschedulable = statemachine.State("UNSCHEDULABLE")

	// ReasonDeadlineExceeded is the reason of a task whose engine call timed out.
	ReasonDeadlineExceeded = "placement deadline exceeded"
	// ReasonCancelled is the reason of a task not placed since the cycle was cancelled.
	ReasonCancelled = "placement cancelled"
	// ReasonNoOffer is the reason of a task the engine found no host for.
	ReasonNoOffer = "no eligible offer"
	// ReasonDuplicateCommit is the reason of a task which was already committed.
	ReasonDuplicateCommit = "task is already committed"
	// ReasonCommitted is the reason of an assigned task.
	ReasonCommitted = "committed to offer"

	_evaluating = "calling placement engine"
)

// ErrSchedulerBusy is returned by Schedule when the scheduler is already
// running a cycle.
var ErrSchedulerBusy = errors.New("scheduler is already running a cycle")

// Outcome is the result of one scheduling attempt of a task.
type Outcome struct {
	// Task is the task the outcome is for.
	Task *models.Task
	// State is either Assigned or Unschedulable.
	State statemachine.State
	// Assignment is set iff the task is assigned.
	Assignment *models.AssignedTask
	// Reason explains the state.
	Reason string
	// Attempt is the number of cycles the task has been tried in, including
	// this one.
	Attempt int
	// RetryAfter is the delay before the task should be retried, it is only
	// set for retryable tasks.
	RetryAfter time.Duration
}

// CycleResult is the result of a call to Schedule.
type CycleResult struct {
	// ID identifies the cycle in the logs.
	ID string
	// Outcomes holds one outcome per task in submission order.
	Outcomes []*Outcome
	// Assigned holds the committed assignments in commit order.
	Assigned []*models.AssignedTask
	// Unschedulable holds the tasks which were not assigned.
	Unschedulable []*models.Task
	// Retryable holds the unschedulable tasks which may be tried again in a
	// later cycle.
	Retryable []*models.Task
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics sets the metrics of the scheduler.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithPlacementTimeout bounds every call to the placement engine, zero means
// no bound.
func WithPlacementTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.placementTimeout = timeout
	}
}

// WithRetryPolicy sets the policy deciding which unschedulable tasks are
// retryable.
func WithRetryPolicy(policy backoff.RetryPolicy) Option {
	return func(s *Scheduler) {
		if policy != nil {
			s.retryPolicy = policy
		}
	}
}

// Scheduler places tasks one at a time, in submission order, committing
// every placement before the next task is looked at so that the affinity of
// later tasks of the same silo follows the earlier ones. A Scheduler owns the
// registry of one scheduling session.
type Scheduler struct {
	id               string
	engine           plugins.Engine
	evaluator        affinity.Evaluator
	registry         *registry.Registry
	metrics          *metrics.Metrics
	placementTimeout time.Duration
	retryPolicy      backoff.RetryPolicy

	running atomic.Bool
	// attempts counts the cycles every task has been tried in, it is only
	// used by the cycle holding running.
	attempts map[string]int
}

// NewScheduler creates a new scheduler with an empty registry.
func NewScheduler(
	engine plugins.Engine,
	evaluator affinity.Evaluator,
	opts ...Option) *Scheduler {
	s := &Scheduler{
		id:          uuid.New(),
		engine:      engine,
		evaluator:   evaluator,
		registry:    registry.New(),
		metrics:     metrics.NewMetrics(tally.NoopScope),
		retryPolicy: backoff.NoRetry(),
		attempts:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	log.WithFields(log.Fields{
		"session_id":        s.id,
		"evaluator":         evaluator.Name(),
		"placement_timeout": s.placementTimeout,
	}).Info("Created scheduler")
	return s
}

// ID returns the id of the scheduling session.
func (s *Scheduler) ID() string {
	return s.id
}

// Registry returns a read-only view of the committed tasks of the session.
func (s *Scheduler) Registry() registry.Reader {
	return registry.ReadOnly(s.registry)
}

// Schedule runs one scheduling cycle over the tasks in order. Every task
// ends up either assigned and committed, or unschedulable. The error is
// ErrSchedulerBusy if another cycle is running, or a duplicate commit error
// (registry.IsDuplicateCommit) in which case the partial result up to and
// including the offending task is returned.
func (s *Scheduler) Schedule(
	ctx context.Context,
	tasks []*models.Task,
	offers []*models.Offer) (*CycleResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSchedulerBusy
	}
	defer s.running.Store(false)

	start := time.Now()
	s.metrics.Cycles.Inc(1)
	defer func() {
		s.metrics.CycleDuration.Record(time.Since(start))
		s.metrics.RegistrySize.Update(float64(s.registry.Len()))
	}()

	result := &CycleResult{
		ID:       uuid.New(),
		Outcomes: make([]*Outcome, 0, len(tasks)),
	}
	log.WithFields(log.Fields{
		"session_id": s.id,
		"cycle_id":   result.ID,
		"num_tasks":  len(tasks),
		"num_offers": len(offers),
	}).Info("Starting scheduling cycle")

	for _, task := range tasks {
		outcome, err := s.scheduleTask(ctx, result.ID, task, offers)
		result.add(outcome)
		if err != nil {
			return result, err
		}
	}

	log.WithFields(log.Fields{
		"session_id":        s.id,
		"cycle_id":          result.ID,
		"num_assigned":      len(result.Assigned),
		"num_unschedulable": len(result.Unschedulable),
		"num_retryable":     len(result.Retryable),
		"duration":          time.Since(start),
	}).Info("Finished scheduling cycle")
	return result, nil
}

func (r *CycleResult) add(outcome *Outcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	switch outcome.State {
	case Assigned:
		r.Assigned = append(r.Assigned, outcome.Assignment)
	case Unschedulable:
		r.Unschedulable = append(r.Unschedulable, outcome.Task)
		if outcome.RetryAfter != backoff.Done {
			r.Retryable = append(r.Retryable, outcome.Task)
		}
	}
}

// scheduleTask moves the task from Pending through Evaluating to either
// Assigned or Unschedulable.
func (s *Scheduler) scheduleTask(
	ctx context.Context,
	cycleID string,
	task *models.Task,
	offers []*models.Offer) (*Outcome, error) {
	s.attempts[task.ID()]++
	outcome := &Outcome{
		Task:       task,
		State:      Pending,
		Attempt:    s.attempts[task.ID()],
		RetryAfter: backoff.Done,
	}
	entry := log.WithFields(log.Fields{
		"session_id": s.id,
		"cycle_id":   cycleID,
		"task_id":    task.ID(),
		"group":      task.Group(),
		"attempt":    outcome.Attempt,
	})

	sm, err := s.newTaskStateMachine(task)
	if err != nil {
		return outcome, err
	}
	if err := s.transit(sm, outcome, entry, Evaluating, _evaluating); err != nil {
		return outcome, err
	}

	offer, reason := s.place(ctx, task, offers)
	if offer == nil {
		return outcome, s.unschedulable(sm, outcome, entry, reason)
	}

	assigned := models.NewAssignedTask(task, offer)
	entry = entry.WithFields(log.Fields{
		"offer_id": offer.ID(),
		"hostname": offer.Hostname(),
		"rack":     assigned.Rack(),
	})
	if err := s.registry.Commit(task.ID(), assigned); err != nil {
		s.metrics.DuplicateCommits.Inc(1)
		entry.WithError(err).Error("Failed to commit placement")
		if terr := s.transit(sm, outcome, entry, Unschedulable, ReasonDuplicateCommit); terr != nil {
			return outcome, terr
		}
		return outcome, err
	}

	outcome.Assignment = assigned
	return outcome, s.transit(sm, outcome, entry, Assigned, ReasonCommitted)
}

// place calls the engine for the task alone and returns the chosen offer, or
// nil and the reason no offer was chosen.
func (s *Scheduler) place(
	ctx context.Context,
	task *models.Task,
	offers []*models.Offer) (*models.Offer, string) {
	if ctx.Err() != nil {
		return nil, reasonOf(ctx.Err())
	}

	callCtx := ctx
	if s.placementTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.placementTimeout)
		defer cancel()
	}

	start := time.Now()
	placements, err := s.engine.ScheduleOnce(
		callCtx,
		[]*models.Task{task},
		offers,
		registry.ReadOnly(s.registry),
		s.evaluator,
	)
	s.metrics.EngineDuration.Record(time.Since(start))
	if err != nil {
		if errors.Cause(err) == context.DeadlineExceeded {
			s.metrics.TasksDeadlineExceeded.Inc(1)
		}
		return nil, reasonOf(err)
	}

	offer, ok := placements[task.ID()]
	if !ok || offer == nil {
		return nil, ReasonNoOffer
	}
	return offer, ""
}

func reasonOf(err error) string {
	switch errors.Cause(err) {
	case context.DeadlineExceeded:
		return ReasonDeadlineExceeded
	case context.Canceled:
		return ReasonCancelled
	}
	return errors.Wrap(err, "placement engine failed").Error()
}

// unschedulable marks the task unschedulable and asks the retry policy
// whether it may be tried in a later cycle.
func (s *Scheduler) unschedulable(
	sm statemachine.StateMachine,
	outcome *Outcome,
	entry *log.Entry,
	reason string) error {
	delay := s.retryPolicy.CalculateNextDelay(outcome.Attempt)
	if !backoff.IsDone(delay) {
		outcome.RetryAfter = delay
		s.metrics.TasksRetryable.Inc(1)
		entry = entry.WithField("retry_after", delay)
	}
	return s.transit(sm, outcome, entry, Unschedulable, reason)
}

// transit moves the state machine of the task and records the new state in
// the outcome.
func (s *Scheduler) transit(
	sm statemachine.StateMachine,
	outcome *Outcome,
	entry *log.Entry,
	to statemachine.State,
	reason string) error {
	if err := sm.TransitTo(to, reason); err != nil {
		entry.WithError(err).Error("Invalid task state transition")
		return err
	}
	outcome.State = sm.GetCurrentState()
	outcome.Reason = sm.GetReason()

	entry = entry.WithFields(log.Fields{
		"state":  outcome.State,
		"reason": outcome.Reason,
	})
	switch to {
	case Assigned:
		entry.Info("Task assigned")
	case Unschedulable:
		entry.Info("Task unschedulable")
	default:
		entry.Debug("Task state changed")
	}
	return nil
}

// newTaskStateMachine creates the state machine of one scheduling attempt of
// the task.
func (s *Scheduler) newTaskStateMachine(task *models.Task) (statemachine.StateMachine, error) {
	return statemachine.NewBuilder().
		WithName(task.ID()).
		WithCurrentState(Pending).
		WithTransitionCallback(s.transitionCallback).
		AddRule(&statemachine.Rule{
			From: Pending,
			To:   []statemachine.State{Evaluating},
		}).
		AddRule(&statemachine.Rule{
			From: Evaluating,
			To:   []statemachine.State{Assigned, Unschedulable},
		}).
		Build()
}

func (s *Scheduler) transitionCallback(t *statemachine.Transition) error {
	switch t.To {
	case Assigned:
		s.metrics.TasksAssigned.Inc(1)
	case Unschedulable:
		s.metrics.TasksUnschedulable.Inc(1)
	}
	return nil
}

// NewLeaseRejectLogger returns a lease reject callback which only logs and
// counts the rejected offers.
func NewLeaseRejectLogger(m *metrics.Metrics) plugins.LeaseRejectFunc {
	return func(offerID string) {
		m.OffersRejected.Inc(1)
		log.WithField("offer_id", offerID).Debug("Offer rejected for task")
	}
}
