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
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (
	// LevelOverwrite is the endpoint of the level overwrite handler.
	LevelOverwrite = "/logging-level"

	_level    = "level"
	_duration = "duration"
	_usage    = "usage: GET `/logging-level?level=[info|debug]&duration=<duration>`"
)

var _loggingLevel atomic.Uint32

func writeError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, err.Error())
	fmt.Fprintln(w, _usage)
}

// parseOverwrite returns the level and duration of an overwrite request.
func parseOverwrite(r *http.Request) (log.Level, time.Duration, error) {
	values := r.URL.Query()
	levelParam, durationParam := values.Get(_level), values.Get(_duration)
	if levelParam == "" || durationParam == "" {
		return 0, 0, errors.Errorf("required params not set: %s,%s", _level, _duration)
	}

	level, err := log.ParseLevel(levelParam)
	if err != nil {
		return 0, 0, err
	}
	if level != log.InfoLevel && level != log.DebugLevel {
		return 0, 0, errors.Errorf("new level %s is not info or debug", levelParam)
	}

	duration, err := time.ParseDuration(durationParam)
	if err != nil {
		return 0, 0, err
	}
	return level, duration, nil
}

// LevelOverwriteHandler returns a handler which overwrites the logging level
// for a duration, after which the initial level is restored. Every overwrite
// schedules its own reset.
func LevelOverwriteHandler(initialLevel log.Level) func(http.ResponseWriter, *http.Request) {
	_loggingLevel.Store(uint32(initialLevel))
	log.SetLevel(initialLevel)
	return func(w http.ResponseWriter, r *http.Request) {
		level, duration, err := parseOverwrite(r)
		if err != nil {
			writeError(w, err)
			return
		}

		log.WithFields(log.Fields{
			"new_level": level,
			"duration":  duration,
		}).Info("Setting log level to new level")
		log.SetLevel(level)

		time.AfterFunc(duration, func() {
			initial := log.Level(_loggingLevel.Load())
			log.WithField("initial_level", initial).Info("Resetting log level after timer")
			log.SetLevel(initial)
		})

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Level changed to %s for the next %v.\n", level, duration)
	}
}
