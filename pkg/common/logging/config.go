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
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// JSONFormat logs every entry as a json object.
	JSONFormat = "json"
	// TextFormat logs every entry as text.
	TextFormat = "text"

	// AppLogField is the log field holding the name of the binary.
	AppLogField = "app"
)

// Config is the logging configuration.
type Config struct {
	// Level is one of the logrus levels, info by default.
	Level string `yaml:"level"`
	// Format is either json or text, json by default.
	Format string `yaml:"format"`
}

// Configure sets up the standard logger for the given application and
// returns the level it was set to. Debug overrides the configured level.
func Configure(cfg Config, app string, debug bool) (log.Level, error) {
	var formatter log.Formatter
	switch cfg.Format {
	case "", JSONFormat:
		formatter = &log.JSONFormatter{}
	case TextFormat:
		formatter = &log.TextFormatter{FullTimestamp: true}
	default:
		return log.InfoLevel, errors.Errorf("unknown log format %q", cfg.Format)
	}
	log.SetFormatter(&LogFieldFormatter{
		Formatter: formatter,
		Fields:    log.Fields{AppLogField: app},
	})

	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = log.ParseLevel(cfg.Level); err != nil {
			return log.InfoLevel, errors.Wrap(err, "invalid log level")
		}
	}
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	return level, nil
}
