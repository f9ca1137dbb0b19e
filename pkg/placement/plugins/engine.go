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

package plugins

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks github.com/uber/silo/pkg/placement/plugins Engine

import (
	"context"

	"github.com/uber/silo/pkg/placement/affinity"
	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/registry"
)

// Engine is a placement engine that searches the offers for the best host of
// every task it is given.
type Engine interface {
	// ScheduleOnce returns a map from task id to the offer chosen for the
	// task. A task without an entry in the map could not be placed. The
	// engine only reads the registry and must not commit to it, the caller
	// commits the returned assignments.
	// An error is only returned when the context expires or is cancelled.
	ScheduleOnce(
		ctx context.Context,
		tasks []*models.Task,
		offers []*models.Offer,
		state registry.Reader,
		evaluator affinity.Evaluator,
	) (map[string]*models.Offer, error)
}

// LeaseRejectFunc is called by an engine for every offer it rejects for a
// task. It must not change any placement decision.
type LeaseRejectFunc func(offerID string)

// NoopLeaseReject is a LeaseRejectFunc which does nothing.
func NoopLeaseReject(string) {}
