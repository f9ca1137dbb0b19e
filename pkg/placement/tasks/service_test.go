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

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/scalar"
	"github.com/uber/silo/pkg/placement/testutil"
)

const _taskFile = `
tasks:
  - id: service-1-fend-1
    group: "1"
    resources:
      cpus: 1
      mem: 1000
  - id: service-1-slug-1
    group: "1"
    resources:
      cpus: 1
  - id: service-2-fend-1
    group: "2"
`

func writeTaskFile(t *testing.T, content string) (string, func()) {
	dir, err := ioutil.TempDir("", "tasks")
	require.NoError(t, err)
	path := filepath.Join(dir, "tasks.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path, func() { os.RemoveAll(dir) }
}

func TestLoadFile(t *testing.T) {
	path, cleanup := writeTaskFile(t, _taskFile)
	defer cleanup()

	tasks, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "service-1-fend-1", tasks[0].ID())
	assert.Equal(t, "1", tasks[0].Group())
	assert.Equal(t, scalar.Resources{CPU: 1, Mem: 1000}, tasks[0].Resources())
	assert.Equal(t, "2", tasks[2].Group())
	assert.True(t, tasks[2].Resources().Empty())
}

func TestLoadFileErrors(t *testing.T) {
	tt := map[string]string{
		"missing id":    "tasks:\n  - group: \"1\"\n",
		"missing group": "tasks:\n  - id: t1\n",
		"duplicate id":  "tasks:\n  - id: t1\n    group: \"1\"\n  - id: t1\n    group: \"2\"\n",
		"unknown field": "tasks:\n  - id: t1\n    group: \"1\"\n    rack: \"1\"\n",
	}
	for name, content := range tt {
		path, cleanup := writeTaskFile(t, content)
		_, err := LoadFile(path)
		assert.Error(t, err, name)
		cleanup()
	}

	_, err := LoadFile("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestFileService(t *testing.T) {
	path, cleanup := writeTaskFile(t, _taskFile)
	defer cleanup()

	out := &bytes.Buffer{}
	service := NewFileService(path, out)

	tasks, err := service.Dequeue(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	offer := testutil.SetupOffer(2, 1, testutil.SingleTaskResources())
	placed := []*models.AssignedTask{models.NewAssignedTask(tasks[0], offer)}
	require.NoError(t, service.SetPlacements(context.Background(), placed, tasks[1:]))

	var report Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, []Placement{{
		TaskID:   "service-1-fend-1",
		Group:    "1",
		OfferID:  offer.ID(),
		Hostname: "dc-r2-u1",
		Rack:     "2",
	}}, report.Placed)
	require.Len(t, report.Unschedulable, 2)
	assert.Equal(t, "service-1-slug-1", report.Unschedulable[0].TaskID)
	assert.Empty(t, report.Unschedulable[0].Hostname)
}

func TestFileServiceCancelled(t *testing.T) {
	service := NewFileService("/does/not/exist.yaml", &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Dequeue(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, context.Canceled, service.SetPlacements(ctx, nil, nil))
}
