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

	"github.com/pborman/uuid"

	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/scalar"
)

// SetupOffer creates an offer for the given unit of the given rack.
func SetupOffer(rack, unit int, resources map[string]float64) *models.Offer {
	offer, err := models.NewOffer(
		uuid.New(),
		fmt.Sprintf("dc-r%d-u%d", rack, unit),
		[]models.Attribute{
			models.NewTextAttribute(models.RackAttribute, fmt.Sprint(rack)),
			models.NewTextAttribute(models.UnitAttribute, fmt.Sprint(unit)),
		},
		resources)
	if err != nil {
		panic(err)
	}
	return offer
}

// SetupRackOffers creates one offer for each unit of each rack, racks and
// units are numbered from 1. The offers are ordered by rack and then unit.
func SetupRackOffers(racks, units int, resources map[string]float64) []*models.Offer {
	offers := make([]*models.Offer, 0, racks*units)
	for rack := 1; rack <= racks; rack++ {
		for unit := 1; unit <= units; unit++ {
			offers = append(offers, SetupOffer(rack, unit, resources))
		}
	}
	return offers
}

// SingleTaskResources returns offer resources with room for exactly one
// task created by SetupSilo.
func SingleTaskResources() map[string]float64 {
	return map[string]float64{
		scalar.CPU: 1,
		scalar.Mem: 1000,
	}
}
