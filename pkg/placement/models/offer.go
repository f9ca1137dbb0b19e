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
	"fmt"
	"sort"
	"strings"

	"go.uber.org/yarpc/yarpcerrors"

	"github.com/uber/silo/pkg/placement/scalar"
)

const (
	// RackAttribute is the attribute every offer must carry.
	RackAttribute = "rack"
	// UnitAttribute is the optional attribute naming the unit within a rack.
	UnitAttribute = "unit"
)

// IsMalformedOffer returns true iff the error was returned for an offer
// violating the structural invariants of NewOffer.
func IsMalformedOffer(err error) bool {
	return yarpcerrors.IsInvalidArgument(err)
}

func malformedOffer(id, format string, args ...interface{}) error {
	return yarpcerrors.InvalidArgumentErrorf(
		"malformed offer %q: %s", id, fmt.Sprintf(format, args...))
}

// Offer is an immutable description of the resources and location attributes
// currently available on one host.
type Offer struct {
	id         string
	hostname   string
	attributes map[string]Attribute
	resources  map[string]float64
}

// NewOffer validates the raw attribute list and creates an offer from it.
// Attribute names must be unique and a non-empty text rack attribute must be
// present, otherwise a malformed offer error is returned.
func NewOffer(
	id string,
	hostname string,
	attributes []Attribute,
	resources map[string]float64) (*Offer, error) {
	if id == "" {
		return nil, malformedOffer(id, "missing offer id")
	}
	if hostname == "" {
		return nil, malformedOffer(id, "missing hostname")
	}

	attributeMap := make(map[string]Attribute, len(attributes))
	for _, attribute := range attributes {
		if attribute.Name == "" {
			return nil, malformedOffer(id, "attribute without a name")
		}
		switch attribute.Type {
		case Text, Scalar, Set:
		default:
			return nil, malformedOffer(id,
				"attribute %q has unsupported type %q", attribute.Name, attribute.Type)
		}
		if _, exists := attributeMap[attribute.Name]; exists {
			return nil, malformedOffer(id, "duplicate attribute %q", attribute.Name)
		}
		attributeMap[attribute.Name] = attribute.clone()
	}

	rack, ok := attributeMap[RackAttribute]
	if !ok {
		return nil, malformedOffer(id, "missing %q attribute", RackAttribute)
	}
	if rack.Type != Text {
		return nil, malformedOffer(id,
			"%q attribute must be of type %q, got %q", RackAttribute, Text, rack.Type)
	}
	if strings.TrimSpace(rack.Text) == "" {
		return nil, malformedOffer(id, "empty %q attribute", RackAttribute)
	}

	resourceMap := make(map[string]float64, len(resources))
	for name, value := range resources {
		resourceMap[name] = value
	}

	return &Offer{
		id:         id,
		hostname:   hostname,
		attributes: attributeMap,
		resources:  resourceMap,
	}, nil
}

// ID returns the id of the offer.
func (o *Offer) ID() string {
	return o.id
}

// Hostname returns the hostname of the host the offer is for.
func (o *Offer) Hostname() string {
	return o.hostname
}

// Attribute looks up an attribute by name. The returned attribute is a copy.
func (o *Offer) Attribute(name string) (Attribute, bool) {
	attribute, ok := o.attributes[name]
	return attribute.clone(), ok
}

// Attributes returns a copy of all attributes sorted by name.
func (o *Offer) Attributes() []Attribute {
	result := make([]Attribute, 0, len(o.attributes))
	for _, attribute := range o.attributes {
		result = append(result, attribute.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Resource looks up a scalar resource quantity by name.
func (o *Offer) Resource(name string) (float64, bool) {
	value, ok := o.resources[name]
	return value, ok
}

// Resources returns the recognized scalar resources of the offer.
func (o *Offer) Resources() scalar.Resources {
	return scalar.FromMap(o.resources)
}

// Rack returns the rack of the host.
func (o *Offer) Rack() string {
	return o.attributes[RackAttribute].Text
}

// Unit returns the unit of the host within its rack, or the empty string if
// the offer does not carry a unit attribute.
func (o *Offer) Unit() string {
	unit, ok := o.attributes[UnitAttribute]
	if !ok {
		return ""
	}
	return unit.Value()
}

func (o *Offer) String() string {
	return fmt.Sprintf("%s(%s rack=%s)", o.id, o.hostname, o.Rack())
}
