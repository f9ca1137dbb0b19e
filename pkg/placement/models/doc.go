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

// Package models contains the data containers passed between the scheduling
// loop, the affinity evaluators and the placement engine.
//
// This package contains the following types:
//   - Offer is an immutable description of one host, its location attributes
//     (rack, unit) and its available scalar resources. An offer can only be
//     created through NewOffer which rejects offers without a rack.
//   - Attribute is a typed host attribute in the same shape as the attributes
//     of a Mesos agent.
//   - Task is in 1:1 correspondence with a submitted workload, it knows the
//     silo it belongs to and the resources it needs.
//   - AssignedTask is the committed binding of a task to an offer, the rack is
//     derived from the offer at commit time.
package models
