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

package metrics

import (
	"github.com/uber-go/tally"
)

// Metrics is the struct containing all the counters that track the
// placement of tasks.
type Metrics struct {
	// Cycles counts the calls to Schedule.
	Cycles tally.Counter
	// CycleDuration times every call to Schedule.
	CycleDuration tally.Timer

	// TasksAssigned counts the tasks committed to a host.
	TasksAssigned tally.Counter
	// TasksUnschedulable counts the tasks no host was found for.
	TasksUnschedulable tally.Counter
	// TasksRetryable counts the unschedulable tasks handed back for a
	// later cycle.
	TasksRetryable tally.Counter
	// TasksDeadlineExceeded counts the engine calls that timed out.
	TasksDeadlineExceeded tally.Counter
	// DuplicateCommits counts commits of already committed tasks.
	DuplicateCommits tally.Counter

	// EngineDuration times every call to the placement engine.
	EngineDuration tally.Timer

	// OffersMalformed counts the offers dropped for a missing or invalid
	// rack.
	OffersMalformed tally.Counter
	// OffersRejected counts the offers the engine could not fit a task on.
	OffersRejected tally.Counter

	// RegistrySize is the number of committed tasks.
	RegistrySize tally.Gauge
}

// NewMetrics returns a new Metrics struct, with all metrics initialized and
// rooted at the given tally.Scope
func NewMetrics(scope tally.Scope) *Metrics {
	tasks := scope.SubScope("tasks")
	offers := scope.SubScope("offers")
	return &Metrics{
		Cycles:        scope.Counter("cycles"),
		CycleDuration: scope.Timer("cycle_duration"),

		TasksAssigned:         tasks.Counter("assigned"),
		TasksUnschedulable:    tasks.Counter("unschedulable"),
		TasksRetryable:        tasks.Counter("retryable"),
		TasksDeadlineExceeded: tasks.Counter("deadline_exceeded"),
		DuplicateCommits:      tasks.Counter("duplicate_commits"),

		EngineDuration: scope.Timer("engine_duration"),

		OffersMalformed: offers.Counter("malformed"),
		OffersRejected:  offers.Counter("rejected"),

		RegistrySize: scope.Gauge("registry_size"),
	}
}
