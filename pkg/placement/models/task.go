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

import (
	"fmt"

	"github.com/uber/silo/pkg/placement/scalar"
)

// NewTask will create a new task belonging to the given silo.
func NewTask(id, group string, resources scalar.Resources) *Task {
	return &Task{
		id:        id,
		group:     group,
		resources: resources,
	}
}

// Task describes a workload to be placed, it is immutable once submitted.
type Task struct {
	id        string
	group     string
	resources scalar.Resources
}

// ID returns the unique id of the task.
func (t *Task) ID() string {
	return t.id
}

// Group returns the silo the task belongs to.
func (t *Task) Group() string {
	return t.group
}

// Resources returns the resource requirements of the task.
func (t *Task) Resources() scalar.Resources {
	return t.resources
}

func (t *Task) String() string {
	return fmt.Sprintf("%s(silo=%s)", t.id, t.group)
}
