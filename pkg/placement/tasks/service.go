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

package tasks

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/uber/silo/pkg/placement/tasks Service

import (
	"context"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/scalar"
)

const _failedToSetPlacements = "failed to set placements"

// Service will manage tasks and placements used by any placement strategy.
type Service interface {
	// Dequeue returns the tasks to place in submission order.
	Dequeue(ctx context.Context) ([]*models.Task, error)

	// SetPlacements reports the successful and unsuccessful placements.
	SetPlacements(
		ctx context.Context,
		placed []*models.AssignedTask,
		failed []*models.Task,
	) error
}

// RawTask is a task as it is read from a fixture.
type RawTask struct {
	ID        string           `yaml:"id"`
	Group     string           `yaml:"group"`
	Resources scalar.Resources `yaml:"resources"`
}

type fixture struct {
	Tasks []RawTask `yaml:"tasks"`
}

// LoadFile reads the tasks of a YAML task file, in file order. Tasks must
// have a unique non empty id and a non empty group.
func LoadFile(path string) ([]*models.Task, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read task file %s", path)
	}
	var f fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse task file %s", path)
	}

	seen := make(map[string]bool, len(f.Tasks))
	tasks := make([]*models.Task, 0, len(f.Tasks))
	for i, raw := range f.Tasks {
		if raw.ID == "" {
			return nil, errors.Errorf("task %d of %s has no id", i, path)
		}
		if raw.Group == "" {
			return nil, errors.Errorf("task %s of %s has no group", raw.ID, path)
		}
		if seen[raw.ID] {
			return nil, errors.Errorf("task %s of %s is not unique", raw.ID, path)
		}
		seen[raw.ID] = true
		if raw.Resources.Empty() {
			log.WithFields(log.Fields{
				"task_id": raw.ID,
				"path":    path,
			}).Warn("Task requests no resources")
		}
		tasks = append(tasks, models.NewTask(raw.ID, raw.Group, raw.Resources))
	}
	return tasks, nil
}

// Placement is the reported placement of a task.
type Placement struct {
	TaskID   string `yaml:"task_id"`
	Group    string `yaml:"group"`
	OfferID  string `yaml:"offer_id,omitempty"`
	Hostname string `yaml:"hostname,omitempty"`
	Rack     string `yaml:"rack,omitempty"`
}

// Report is the document written by SetPlacements.
type Report struct {
	Placed        []Placement `yaml:"placed"`
	Unschedulable []Placement `yaml:"unschedulable"`
}

// NewFileService will create a new task service which dequeues the tasks of
// the given YAML file and writes the placements to out as YAML.
func NewFileService(path string, out io.Writer) Service {
	return &fileService{
		path: path,
		out:  out,
	}
}

type fileService struct {
	path string
	out  io.Writer
}

// Dequeue reads the tasks of the file.
func (s *fileService) Dequeue(ctx context.Context) ([]*models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"path":  s.path,
		"tasks": len(tasks),
	}).Info("Dequeued from task file")
	return tasks, nil
}

// SetPlacements writes the placements as a YAML report.
func (s *fileService) SetPlacements(
	ctx context.Context,
	placed []*models.AssignedTask,
	failed []*models.Task,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	report := Report{
		Placed:        make([]Placement, 0, len(placed)),
		Unschedulable: make([]Placement, 0, len(failed)),
	}
	for _, assigned := range placed {
		report.Placed = append(report.Placed, Placement{
			TaskID:   assigned.Task().ID(),
			Group:    assigned.Task().Group(),
			OfferID:  assigned.Offer().ID(),
			Hostname: assigned.Offer().Hostname(),
			Rack:     assigned.Rack(),
		})
	}
	for _, task := range failed {
		report.Unschedulable = append(report.Unschedulable, Placement{
			TaskID: task.ID(),
			Group:  task.Group(),
		})
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		log.WithError(err).Error(_failedToSetPlacements)
		return errors.Wrap(err, _failedToSetPlacements)
	}
	if _, err := s.out.Write(data); err != nil {
		log.WithError(err).Error(_failedToSetPlacements)
		return errors.Wrap(err, _failedToSetPlacements)
	}

	log.WithFields(log.Fields{
		"num_placed":        len(placed),
		"num_unschedulable": len(failed),
	}).Info("Set placements")
	return nil
}
