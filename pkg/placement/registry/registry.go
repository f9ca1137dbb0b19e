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

package registry

import (
	"sync"

	"go.uber.org/yarpc/yarpcerrors"

	"github.com/uber/silo/pkg/placement/models"
)

// IsDuplicateCommit returns true iff the error was returned by Commit for a
// task id which is already committed.
func IsDuplicateCommit(err error) bool {
	return yarpcerrors.IsAlreadyExists(err)
}

// Reader is the read-only view of the registry handed to affinity
// evaluators and placement engines.
type Reader interface {
	// Each calls fn for every committed task in commit order until fn
	// returns false. Each can be called any number of times.
	Each(fn func(assigned *models.AssignedTask) bool)

	// All returns a snapshot of every committed task in commit order.
	All() []*models.AssignedTask

	// FindByGroup returns the first committed task of the given silo.
	FindByGroup(group string) (*models.AssignedTask, bool)

	// Get returns the committed task with the given id.
	Get(taskID string) (*models.AssignedTask, bool)

	// Len returns the number of committed tasks.
	Len() int
}

// Registry is the authoritative record of committed task bindings for one
// scheduling session. It only grows.
type Registry struct {
	sync.RWMutex

	// order holds the committed task ids in commit order.
	order []string
	tasks map[string]*models.AssignedTask
	// firstByGroup caches the first committed member of every silo.
	firstByGroup map[string]*models.AssignedTask
}

var _ Reader = &Registry{}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tasks:        make(map[string]*models.AssignedTask),
		firstByGroup: make(map[string]*models.AssignedTask),
	}
}

// Commit records the binding of the task with the given id. A task id can be
// committed at most once, any later commit fails and leaves the registry
// unchanged. The id must be the id of the assigned task.
func (r *Registry) Commit(taskID string, assigned *models.AssignedTask) error {
	if assigned == nil {
		return yarpcerrors.InvalidArgumentErrorf(
			"nil assignment for task %s", taskID)
	}
	if assigned.Task().ID() != taskID {
		return yarpcerrors.InvalidArgumentErrorf(
			"task id %s does not match assignment of %s", taskID, assigned.Task().ID())
	}

	r.Lock()
	defer r.Unlock()

	if _, exists := r.tasks[taskID]; exists {
		return yarpcerrors.AlreadyExistsErrorf(
			"task %s is already committed", taskID)
	}
	r.tasks[taskID] = assigned
	r.order = append(r.order, taskID)

	group := assigned.Task().Group()
	if _, exists := r.firstByGroup[group]; !exists {
		r.firstByGroup[group] = assigned
	}
	return nil
}

// Each implements Reader. The registry is read locked while fn runs, so fn
// must not commit.
func (r *Registry) Each(fn func(assigned *models.AssignedTask) bool) {
	r.RLock()
	defer r.RUnlock()

	for _, taskID := range r.order {
		if !fn(r.tasks[taskID]) {
			return
		}
	}
}

// All implements Reader.
func (r *Registry) All() []*models.AssignedTask {
	r.RLock()
	defer r.RUnlock()

	result := make([]*models.AssignedTask, 0, len(r.order))
	for _, taskID := range r.order {
		result = append(result, r.tasks[taskID])
	}
	return result
}

// FindByGroup implements Reader.
func (r *Registry) FindByGroup(group string) (*models.AssignedTask, bool) {
	r.RLock()
	defer r.RUnlock()

	assigned, ok := r.firstByGroup[group]
	return assigned, ok
}

// Get implements Reader.
func (r *Registry) Get(taskID string) (*models.AssignedTask, bool) {
	r.RLock()
	defer r.RUnlock()

	assigned, ok := r.tasks[taskID]
	return assigned, ok
}

// Len implements Reader.
func (r *Registry) Len() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.order)
}

// ReadOnly returns a view of the registry which can not be type asserted
// back to a *Registry and hence not be committed to.
func ReadOnly(r *Registry) Reader {
	return struct{ Reader }{r}
}
