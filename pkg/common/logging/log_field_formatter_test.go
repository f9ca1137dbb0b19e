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

package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogFieldFormatterFormat(t *testing.T) {
	formatter := LogFieldFormatter{
		Fields:    log.Fields{AppLogField: "placement", "task_id": "default"},
		Formatter: &log.JSONFormatter{},
	}
	b, err := formatter.Format(log.WithField("task_id", "service-1-fend-1"))
	assert.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"app":"placement"`)
	assert.Contains(t, s, `"task_id":"service-1-fend-1"`)
	assert.NotContains(t, s, `"task_id":"default"`)
}
