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

package testutil

import (
	"fmt"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/scalar"
)

// SetupTask creates a task of the given silo using one cpu and 1000 MB.
func SetupTask(id, group string) *models.Task {
	return models.NewTask(id, group, scalar.Resources{CPU: 1, Mem: 1000})
}

// SetupSilo creates n tasks of the given silo with ids <group>-<i>,
// numbered from 1.
func SetupSilo(group string, n int) []*models.Task {
	tasks := make([]*models.Task, 0, n)
	for i := 1; i <= n; i++ {
		tasks = append(tasks, SetupTask(fmt.Sprintf("%s-%d", group, i), group))
	}
	return tasks
}

// SetupAssigned creates a committed assignment of the task onto the offer.
func SetupAssigned(task *models.Task, offer *models.Offer) *models.AssignedTask {
	return models.NewAssignedTask(task, offer)
}
