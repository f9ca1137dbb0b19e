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
	"sort"
	"strconv"
	"strings"
)

const (
	_precision = 6
	_bitsize   = 64
)

// ValueType is the type of an offer attribute value.
type ValueType string

const (
	// Text is a plain string attribute value.
	Text ValueType = "text"
	// Scalar is a floating point attribute value.
	Scalar ValueType = "scalar"
	// Set is an unordered set of strings.
	Set ValueType = "set"
)

// Attribute is a named and typed host attribute carried by an offer, e.g. the
// rack or unit of the host.
type Attribute struct {
	Name   string    `yaml:"name"`
	Type   ValueType `yaml:"type"`
	Text   string    `yaml:"text,omitempty"`
	Scalar float64   `yaml:"scalar,omitempty"`
	Set    []string  `yaml:"set,omitempty"`
}

// NewTextAttribute creates a text attribute.
func NewTextAttribute(name, value string) Attribute {
	return Attribute{
		Name: name,
		Type: Text,
		Text: value,
	}
}

// clone returns a copy of the attribute which shares no slice with it.
func (a Attribute) clone() Attribute {
	if a.Set != nil {
		a.Set = append([]string(nil), a.Set...)
	}
	return a
}

// Value renders the attribute value as a string, set items are sorted and
// comma separated.
func (a Attribute) Value() string {
	switch a.Type {
	case Text:
		return a.Text
	case Scalar:
		return strconv.FormatFloat(a.Scalar, 'f', _precision, _bitsize)
	case Set:
		items := append([]string(nil), a.Set...)
		sort.Strings(items)
		return strings.Join(items, ",")
	}
	return ""
}
