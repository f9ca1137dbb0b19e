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

package offers

import (
	"context"
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/uber/silo/pkg/placement/metrics"
	"github.com/uber/silo/pkg/placement/models"
)

const _malformedOffer = "dropping malformed offer"

// fixture is the layout of an offer file.
type fixture struct {
	Offers []RawOffer `yaml:"offers"`
}

// LoadFile reads the raw offers of a YAML offer file.
func LoadFile(path string) ([]RawOffer, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read offer file %s", path)
	}
	var f fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse offer file %s", path)
	}
	return f.Offers, nil
}

// NewFileService will create a new offer service reading the offers of the
// given YAML file on every Acquire.
func NewFileService(path string, metrics *metrics.Metrics) Service {
	return &fileService{
		path:    path,
		metrics: metrics,
	}
}

type fileService struct {
	path    string
	metrics *metrics.Metrics
}

// Acquire reads, validates and returns the offers of the file.
func (s *fileService) Acquire(ctx context.Context) ([]*models.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}

	valid, err := Filter(raw)
	for _, malformed := range multierr.Errors(err) {
		log.WithError(malformed).
			WithField("path", s.path).
			Warn(_malformedOffer)
		s.metrics.OffersMalformed.Inc(1)
	}

	log.WithFields(log.Fields{
		"path":      s.path,
		"offers":    len(raw),
		"valid":     len(valid),
		"malformed": len(raw) - len(valid),
	}).Info("Acquired offers")
	return valid, nil
}
