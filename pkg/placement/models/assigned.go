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

package models

// AssignedTask represents the committed binding of a task to the offer it
// was placed on.
type AssignedTask struct {
	task  *Task
	offer *Offer
	rack  string
}

// NewAssignedTask creates the binding of a task to an offer, the rack is
// taken from the offer.
func NewAssignedTask(task *Task, offer *Offer) *AssignedTask {
	return &AssignedTask{
		task:  task,
		offer: offer,
		rack:  offer.Rack(),
	}
}

// Task returns the task of the binding.
func (a *AssignedTask) Task() *Task {
	return a.task
}

// Offer returns the offer used by the task.
func (a *AssignedTask) Offer() *Offer {
	return a.offer
}

// Rack returns the rack the task was committed to.
func (a *AssignedTask) Rack() string {
	return a.rack
}
