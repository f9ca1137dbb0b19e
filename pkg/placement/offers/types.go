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

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/uber/silo/pkg/placement/offers Service

import (
	"context"

	"go.uber.org/multierr"

	"github.com/uber/silo/pkg/placement/models"
)

// Service will provide the offers used by any placement strategy.
type Service interface {
	// Acquire returns the valid offers of the cluster. Malformed offers are
	// dropped, an error is only returned when no offer could be read.
	Acquire(ctx context.Context) ([]*models.Offer, error)
}

// RawOffer is an offer as it is read from a fixture, before validation.
type RawOffer struct {
	ID         string             `yaml:"id"`
	Hostname   string             `yaml:"hostname"`
	Attributes []models.Attribute `yaml:"attributes"`
	Resources  map[string]float64 `yaml:"resources"`
}

// Filter validates the raw offers and returns the valid ones in order. The
// error combines the errors of every malformed offer, use multierr.Errors to
// get them one by one.
func Filter(raw []RawOffer) ([]*models.Offer, error) {
	valid := make([]*models.Offer, 0, len(raw))
	var errs error
	for _, r := range raw {
		offer, err := models.NewOffer(r.ID, r.Hostname, r.Attributes, r.Resources)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		valid = append(valid, offer)
	}
	return valid, errs
}
