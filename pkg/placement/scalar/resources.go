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

package scalar

import (
	"fmt"
	"math"
)

const (
	// CPU is the offer resource name for cpus.
	CPU = "cpus"
	// Mem is the offer resource name for memory in MB.
	Mem = "mem"
	// Disk is the offer resource name for disk in MB.
	Disk = "disk"
	// GPU is the offer resource name for gpus.
	GPU = "gpus"

	// Epsilon is the smallest resource quantity treated as non-zero.
	Epsilon = 0.0009
)

// Resources is a non-thread safe helper struct holding recognized resources.
type Resources struct {
	CPU  float64 `yaml:"cpus"`
	Mem  float64 `yaml:"mem"`
	Disk float64 `yaml:"disk"`
	GPU  float64 `yaml:"gpus"`
}

// a safe less than or equal to comparator which takes epsilon into consideration.
func lessThanOrEqual(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < Epsilon {
		return true
	}
	return v < 0
}

// Contains determines whether current Resources is large enough to contain
// the other one.
func (r Resources) Contains(other Resources) bool {
	return lessThanOrEqual(other.CPU, r.CPU) &&
		lessThanOrEqual(other.Mem, r.Mem) &&
		lessThanOrEqual(other.Disk, r.Disk) &&
		lessThanOrEqual(other.GPU, r.GPU)
}

// Add another scalar resources onto current one and return a new copy.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		CPU:  r.CPU + other.CPU,
		Mem:  r.Mem + other.Mem,
		Disk: r.Disk + other.Disk,
		GPU:  r.GPU + other.GPU,
	}
}

// Subtract another scalar resources from current one and return a new copy.
func (r Resources) Subtract(other Resources) Resources {
	return Resources{
		CPU:  r.CPU - other.CPU,
		Mem:  r.Mem - other.Mem,
		Disk: r.Disk - other.Disk,
		GPU:  r.GPU - other.GPU,
	}
}

// TrySubtract attempts to subtract another scalar resources from current one,
// the second return value is false if other has more resources.
func (r Resources) TrySubtract(other Resources) (Resources, bool) {
	if !r.Contains(other) {
		return r, false
	}
	return r.Subtract(other), true
}

// Empty returns whether all fields are empty.
func (r Resources) Empty() bool {
	return math.Abs(r.CPU) < Epsilon &&
		math.Abs(r.Mem) < Epsilon &&
		math.Abs(r.Disk) < Epsilon &&
		math.Abs(r.GPU) < Epsilon
}

func (r Resources) String() string {
	return fmt.Sprintf("cpus:%.2f mem:%.2f disk:%.2f gpus:%.2f",
		r.CPU, r.Mem, r.Disk, r.GPU)
}

// FromMap returns the scalar Resources from an offer resource map, names
// which are not recognized are ignored.
func FromMap(resources map[string]float64) (r Resources) {
	for name, value := range resources {
		switch name {
		case CPU:
			r.CPU += value
		case Mem:
			r.Mem += value
		case Disk:
			r.Disk += value
		case GPU:
			r.GPU += value
		}
	}
	return r
}
