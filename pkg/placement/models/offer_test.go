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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uber/silo/pkg/placement/scalar"
)

func setupOffer(t *testing.T) *Offer {
	offer, err := NewOffer(
		"offer-1",
		"dc-r1-u2",
		[]Attribute{
			NewTextAttribute(RackAttribute, "1"),
			NewTextAttribute(UnitAttribute, "2"),
			{Name: "generation", Type: Scalar, Scalar: 3},
			{Name: "zones", Type: Set, Set: []string{"b", "a"}},
		},
		map[string]float64{
			scalar.CPU: 1000,
			scalar.Mem: 1000,
		})
	require.NoError(t, err)
	return offer
}

func TestOfferLookups(t *testing.T) {
	offer := setupOffer(t)

	assert.Equal(t, "offer-1", offer.ID())
	assert.Equal(t, "dc-r1-u2", offer.Hostname())
	assert.Equal(t, "1", offer.Rack())
	assert.Equal(t, "2", offer.Unit())

	generation, ok := offer.Attribute("generation")
	assert.True(t, ok)
	assert.Equal(t, "3.000000", generation.Value())

	zones, ok := offer.Attribute("zones")
	assert.True(t, ok)
	assert.Equal(t, "a,b", zones.Value())

	_, ok = offer.Attribute("missing")
	assert.False(t, ok)

	cpus, ok := offer.Resource(scalar.CPU)
	assert.True(t, ok)
	assert.Equal(t, 1000.0, cpus)
	_, ok = offer.Resource(scalar.GPU)
	assert.False(t, ok)

	assert.Equal(t, scalar.Resources{CPU: 1000, Mem: 1000}, offer.Resources())
	assert.Len(t, offer.Attributes(), 4)
	assert.Equal(t, "generation", offer.Attributes()[0].Name)
}

func TestOfferWithoutUnit(t *testing.T) {
	offer, err := NewOffer("offer-2", "host", []Attribute{
		NewTextAttribute(RackAttribute, "4"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", offer.Unit())
	assert.True(t, offer.Resources().Empty())
}

func TestOfferResourcesAreCopied(t *testing.T) {
	resources := map[string]float64{scalar.CPU: 2}
	offer, err := NewOffer("offer-3", "host", []Attribute{
		NewTextAttribute(RackAttribute, "1"),
	}, resources)
	require.NoError(t, err)

	resources[scalar.CPU] = 10
	cpus, _ := offer.Resource(scalar.CPU)
	assert.Equal(t, 2.0, cpus)
}

func TestOfferAttributesAreCopied(t *testing.T) {
	attributes := []Attribute{
		NewTextAttribute(RackAttribute, "1"),
		{Name: "zones", Type: Set, Set: []string{"a", "b"}},
	}
	offer, err := NewOffer("offer-4", "host", attributes, nil)
	require.NoError(t, err)

	attributes[1].Set[0] = "c"
	zones, ok := offer.Attribute("zones")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, zones.Set)

	zones.Set[0] = "d"
	offer.Attributes()[1].Set[1] = "e"
	zones, _ = offer.Attribute("zones")
	assert.Equal(t, []string{"a", "b"}, zones.Set)
	assert.Equal(t, "a,b", zones.Value())
}

func TestMalformedOffers(t *testing.T) {
	tt := []struct {
		msg        string
		id         string
		hostname   string
		attributes []Attribute
	}{
		{
			msg:      "missing rack",
			id:       "offer",
			hostname: "host",
			attributes: []Attribute{
				NewTextAttribute(UnitAttribute, "1"),
			},
		},
		{
			msg:      "empty rack",
			id:       "offer",
			hostname: "host",
			attributes: []Attribute{
				NewTextAttribute(RackAttribute, "  "),
			},
		},
		{
			msg:      "scalar rack",
			id:       "offer",
			hostname: "host",
			attributes: []Attribute{
				{Name: RackAttribute, Type: Scalar, Scalar: 1},
			},
		},
		{
			msg:      "duplicate attribute",
			id:       "offer",
			hostname: "host",
			attributes: []Attribute{
				NewTextAttribute(RackAttribute, "1"),
				NewTextAttribute(RackAttribute, "2"),
			},
		},
		{
			msg:      "unnamed attribute",
			id:       "offer",
			hostname: "host",
			attributes: []Attribute{
				NewTextAttribute(RackAttribute, "1"),
				NewTextAttribute("", "2"),
			},
		},
		{
			msg:      "unknown attribute type",
			id:       "offer",
			hostname: "host",
			attributes: []Attribute{
				NewTextAttribute(RackAttribute, "1"),
				{Name: "ports", Type: "ranges"},
			},
		},
		{
			msg:      "missing id",
			hostname: "host",
			attributes: []Attribute{
				NewTextAttribute(RackAttribute, "1"),
			},
		},
		{
			msg: "missing hostname",
			id:  "offer",
			attributes: []Attribute{
				NewTextAttribute(RackAttribute, "1"),
			},
		},
	}

	for _, test := range tt {
		offer, err := NewOffer(test.id, test.hostname, test.attributes, nil)
		assert.Nil(t, offer, test.msg)
		assert.Error(t, err, test.msg)
		assert.True(t, IsMalformedOffer(err), test.msg)
	}
}

func TestIsMalformedOfferOtherErrors(t *testing.T) {
	assert.False(t, IsMalformedOffer(nil))
	assert.False(t, IsMalformedOffer(errors.New("boom")))
}

func TestAssignedTaskDerivesRack(t *testing.T) {
	offer := setupOffer(t)
	task := NewTask("service-1-fend-0", "1", scalar.Resources{CPU: 1, Mem: 1})

	assigned := NewAssignedTask(task, offer)
	assert.Equal(t, task, assigned.Task())
	assert.Equal(t, offer, assigned.Offer())
	assert.Equal(t, "1", assigned.Rack())
	assert.Equal(t, "service-1-fend-0", assigned.Task().ID())
	assert.Equal(t, "1", assigned.Task().Group())
	assert.Equal(t, scalar.Resources{CPU: 1, Mem: 1}, assigned.Task().Resources())
}
