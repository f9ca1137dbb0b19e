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

package placement

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/uber/silo/pkg/common/backoff"
	"github.com/uber/silo/pkg/placement/affinity"
	"github.com/uber/silo/pkg/placement/metrics"
	"github.com/uber/silo/pkg/placement/models"
	"github.com/uber/silo/pkg/placement/offers"
	"github.com/uber/silo/pkg/placement/plugins/firstfit"
	"github.com/uber/silo/pkg/placement/plugins/mocks"
	"github.com/uber/silo/pkg/placement/registry"
	"github.com/uber/silo/pkg/placement/testutil"
)

type SchedulerTestSuite struct {
	suite.Suite

	ctrl       *gomock.Controller
	mockEngine *mocks.MockEngine
	scope      tally.TestScope
	metrics    *metrics.Metrics
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockEngine = mocks.NewMockEngine(suite.ctrl)
	suite.scope = tally.NewTestScope("", nil)
	suite.metrics = metrics.NewMetrics(suite.scope)
}

func (suite *SchedulerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) counter(name string) int64 {
	counter, ok := suite.scope.Snapshot().Counters()[name+"+"]
	if !ok {
		return 0
	}
	return counter.Value()
}

func (suite *SchedulerTestSuite) racks(result *CycleResult) []string {
	var racks []string
	for _, outcome := range result.Outcomes {
		if outcome.State == Assigned {
			racks = append(racks, outcome.Assignment.Rack())
		} else {
			racks = append(racks, "")
		}
	}
	return racks
}

// One engine call per task, with the task alone, seeing every earlier commit.
func (suite *SchedulerTestSuite) TestEngineCalledOncePerTask() {
	tasks := testutil.SetupSilo("1", 3)
	offerList := testutil.SetupRackOffers(1, 3, testutil.SingleTaskResources())
	evaluator := affinity.NewHardConstraint("")
	s := NewScheduler(suite.mockEngine, evaluator, WithMetrics(suite.metrics))

	var calls []*gomock.Call
	for i, task := range tasks {
		i, task := i, task
		calls = append(calls, suite.mockEngine.EXPECT().
			ScheduleOnce(gomock.Any(), []*models.Task{task}, offerList, gomock.Any(), evaluator).
			DoAndReturn(func(
				_ context.Context,
				_ []*models.Task,
				_ []*models.Offer,
				state registry.Reader,
				_ affinity.Evaluator) (map[string]*models.Offer, error) {
				suite.Equal(i, state.Len())
				_, isRegistry := state.(*registry.Registry)
				suite.False(isRegistry)
				return map[string]*models.Offer{task.ID(): offerList[i]}, nil
			}))
	}
	gomock.InOrder(calls...)

	result, err := s.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)
	suite.Len(result.Outcomes, 3)
	suite.Len(result.Assigned, 3)
	suite.Empty(result.Unschedulable)
	suite.Empty(result.Retryable)
	suite.NotEmpty(result.ID)
	for i, outcome := range result.Outcomes {
		suite.Equal(tasks[i], outcome.Task)
		suite.Equal(Assigned, outcome.State)
		suite.Equal(ReasonCommitted, outcome.Reason)
		suite.Equal(1, outcome.Attempt)
		suite.Equal(offerList[i], outcome.Assignment.Offer())
	}
	suite.Equal(3, s.Registry().Len())
	suite.Equal(int64(3), suite.counter("tasks.assigned"))
	suite.Equal(int64(1), suite.counter("cycles"))
}

// Four racks of three single-task units and a silo of six tasks: the first
// three fill the first rack and the rest can not follow them.
func (suite *SchedulerTestSuite) TestHardAffinityScenario() {
	offerList := testutil.SetupRackOffers(4, 3, testutil.SingleTaskResources())
	tasks := testutil.SetupSilo("1", 6)
	s := NewScheduler(
		firstfit.New(),
		affinity.NewHardConstraint(""),
		WithMetrics(suite.metrics))

	result, err := s.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)
	suite.Equal([]string{"1", "1", "1", "", "", ""}, suite.racks(result))
	suite.Equal(tasks[3:], result.Unschedulable)
	for _, outcome := range result.Outcomes[3:] {
		suite.Equal(Unschedulable, outcome.State)
		suite.Equal(ReasonNoOffer, outcome.Reason)
		suite.Nil(outcome.Assignment)
	}

	hosts := map[string]bool{}
	for _, assigned := range result.Assigned {
		hosts[assigned.Offer().Hostname()] = true
	}
	suite.Len(hosts, 3)

	first, ok := s.Registry().FindByGroup("1")
	suite.True(ok)
	suite.Equal(tasks[0].ID(), first.Task().ID())
	suite.Equal(int64(3), suite.counter("tasks.unschedulable"))
}

func (suite *SchedulerTestSuite) TestSilosKeepTheirRack() {
	offerList := testutil.SetupRackOffers(4, 3, testutil.SingleTaskResources())
	var tasks []*models.Task
	silo1, silo2 := testutil.SetupSilo("1", 3), testutil.SetupSilo("2", 3)
	for i := range silo1 {
		tasks = append(tasks, silo1[i], silo2[i])
	}
	s := NewScheduler(firstfit.New(), affinity.NewHardConstraint(""))

	result, err := s.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)

	racks := map[string]map[string]bool{}
	for _, assigned := range result.Assigned {
		group := assigned.Task().Group()
		if racks[group] == nil {
			racks[group] = map[string]bool{}
		}
		racks[group][assigned.Rack()] = true
	}
	suite.Len(racks["1"], 1)
	suite.Len(racks["2"], 1)
}

func (suite *SchedulerTestSuite) TestSoftAffinityOverflows() {
	offerList := testutil.SetupRackOffers(4, 3, testutil.SingleTaskResources())
	tasks := testutil.SetupSilo("1", 6)
	s := NewScheduler(firstfit.New(), affinity.NewSoftConstraint(""))

	result, err := s.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)
	suite.Equal([]string{"1", "1", "1", "2", "2", "2"}, suite.racks(result))
	suite.Empty(result.Unschedulable)
}

func (suite *SchedulerTestSuite) TestMalformedOffersNeverReachEngine() {
	valid := testutil.SetupRackOffers(1, 2, testutil.SingleTaskResources())
	raw := []offers.RawOffer{
		{ID: "no-rack", Hostname: "dc-r9-u1", Resources: testutil.SingleTaskResources()},
		{ID: valid[0].ID(), Hostname: valid[0].Hostname(), Attributes: valid[0].Attributes(),
			Resources: testutil.SingleTaskResources()},
		{ID: "empty-rack", Hostname: "dc-r9-u2", Attributes: []models.Attribute{
			models.NewTextAttribute(models.RackAttribute, ""),
		}, Resources: testutil.SingleTaskResources()},
		{ID: valid[1].ID(), Hostname: valid[1].Hostname(), Attributes: valid[1].Attributes(),
			Resources: testutil.SingleTaskResources()},
	}
	filtered, err := offers.Filter(raw)
	suite.Error(err)
	suite.Len(filtered, 2)

	tasks := testutil.SetupSilo("1", 3)
	s := NewScheduler(firstfit.New(), affinity.NewHardConstraint(""))
	result, err := s.Schedule(context.Background(), tasks, filtered)
	suite.NoError(err)
	suite.Len(result.Assigned, 2)
	for _, assigned := range result.Assigned {
		suite.NotEqual("no-rack", assigned.Offer().ID())
		suite.NotEqual("empty-rack", assigned.Offer().ID())
	}
	suite.Equal(tasks[2:], result.Unschedulable)
}

func (suite *SchedulerTestSuite) TestDuplicateCommit() {
	task := testutil.SetupTask("t1", "1")
	offerList := testutil.SetupRackOffers(2, 1, testutil.SingleTaskResources())
	s := NewScheduler(suite.mockEngine, affinity.NewHardConstraint(""), WithMetrics(suite.metrics))

	gomock.InOrder(
		suite.mockEngine.EXPECT().
			ScheduleOnce(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[string]*models.Offer{task.ID(): offerList[0]}, nil),
		suite.mockEngine.EXPECT().
			ScheduleOnce(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[string]*models.Offer{task.ID(): offerList[1]}, nil),
	)

	other := testutil.SetupTask("t2", "1")
	result, err := s.Schedule(
		context.Background(), []*models.Task{task, task, other}, offerList)
	suite.Error(err)
	suite.True(registry.IsDuplicateCommit(err))

	suite.Len(result.Outcomes, 2)
	suite.Equal(Assigned, result.Outcomes[0].State)
	suite.Equal(Unschedulable, result.Outcomes[1].State)
	suite.Equal(ReasonDuplicateCommit, result.Outcomes[1].Reason)

	committed, ok := s.Registry().Get(task.ID())
	suite.True(ok)
	suite.Equal(offerList[0], committed.Offer())
	suite.Equal(1, s.Registry().Len())
	suite.Equal(int64(1), suite.counter("tasks.duplicate_commits"))
}

func (suite *SchedulerTestSuite) TestReentrantScheduleIsRejected() {
	task := testutil.SetupTask("t1", "1")
	s := NewScheduler(suite.mockEngine, affinity.NewHardConstraint(""))

	suite.mockEngine.EXPECT().
		ScheduleOnce(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			ctx context.Context,
			_ []*models.Task,
			_ []*models.Offer,
			_ registry.Reader,
			_ affinity.Evaluator) (map[string]*models.Offer, error) {
			result, err := s.Schedule(ctx, []*models.Task{task}, nil)
			suite.Equal(ErrSchedulerBusy, err)
			suite.Nil(result)
			return nil, nil
		})

	result, err := s.Schedule(context.Background(), []*models.Task{task}, nil)
	suite.NoError(err)
	suite.Equal(ReasonNoOffer, result.Outcomes[0].Reason)

	// The guard is released once the cycle is done.
	suite.mockEngine.EXPECT().
		ScheduleOnce(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)
	_, err = s.Schedule(context.Background(), []*models.Task{task}, nil)
	suite.NoError(err)
}

func (suite *SchedulerTestSuite) TestPlacementDeadline() {
	tasks := testutil.SetupSilo("1", 2)
	offerList := testutil.SetupRackOffers(1, 2, testutil.SingleTaskResources())
	s := NewScheduler(
		suite.mockEngine,
		affinity.NewHardConstraint(""),
		WithMetrics(suite.metrics),
		WithPlacementTimeout(10*time.Millisecond))

	gomock.InOrder(
		suite.mockEngine.EXPECT().
			ScheduleOnce(gomock.Any(), []*models.Task{tasks[0]}, gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(
				ctx context.Context,
				_ []*models.Task,
				_ []*models.Offer,
				_ registry.Reader,
				_ affinity.Evaluator) (map[string]*models.Offer, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		suite.mockEngine.EXPECT().
			ScheduleOnce(gomock.Any(), []*models.Task{tasks[1]}, gomock.Any(), gomock.Any(), gomock.Any()).
			Return(map[string]*models.Offer{tasks[1].ID(): offerList[1]}, nil),
	)

	result, err := s.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)
	suite.Equal(Unschedulable, result.Outcomes[0].State)
	suite.Equal(ReasonDeadlineExceeded, result.Outcomes[0].Reason)
	suite.Equal(Assigned, result.Outcomes[1].State)
	suite.Equal(int64(1), suite.counter("tasks.deadline_exceeded"))
}

func (suite *SchedulerTestSuite) TestCancelledCycle() {
	tasks := testutil.SetupSilo("1", 2)
	s := NewScheduler(suite.mockEngine, affinity.NewHardConstraint(""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Schedule(ctx, tasks, testutil.SetupRackOffers(1, 2, testutil.SingleTaskResources()))
	suite.NoError(err)
	suite.Equal(tasks, result.Unschedulable)
	for _, outcome := range result.Outcomes {
		suite.Equal(ReasonCancelled, outcome.Reason)
	}
}

func (suite *SchedulerTestSuite) TestEngineReturnsNilOffer() {
	task := testutil.SetupTask("t1", "1")
	s := NewScheduler(suite.mockEngine, affinity.NewHardConstraint(""))

	suite.mockEngine.EXPECT().
		ScheduleOnce(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(map[string]*models.Offer{task.ID(): nil}, nil)

	result, err := s.Schedule(context.Background(), []*models.Task{task}, nil)
	suite.NoError(err)
	suite.Equal(ReasonNoOffer, result.Outcomes[0].Reason)
	suite.Equal(0, s.Registry().Len())
}

func (suite *SchedulerTestSuite) TestRetryPolicy() {
	task := testutil.SetupTask("t1", "1")
	s := NewScheduler(
		suite.mockEngine,
		affinity.NewHardConstraint(""),
		WithMetrics(suite.metrics),
		WithRetryPolicy(backoff.NewRetryPolicy(2, time.Second)))

	suite.mockEngine.EXPECT().
		ScheduleOnce(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).
		Times(2)

	result, err := s.Schedule(context.Background(), []*models.Task{task}, nil)
	suite.NoError(err)
	suite.Equal([]*models.Task{task}, result.Retryable)
	suite.Equal(1, result.Outcomes[0].Attempt)
	suite.Equal(time.Second, result.Outcomes[0].RetryAfter)

	result, err = s.Schedule(context.Background(), result.Retryable, nil)
	suite.NoError(err)
	suite.Empty(result.Retryable)
	suite.Equal([]*models.Task{task}, result.Unschedulable)
	suite.Equal(2, result.Outcomes[0].Attempt)
	suite.Equal(backoff.Done, result.Outcomes[0].RetryAfter)
	suite.Equal(int64(1), suite.counter("tasks.retryable"))
}

func (suite *SchedulerTestSuite) TestDefaultNeverRetries() {
	s := NewScheduler(firstfit.New(), affinity.NewHardConstraint(""))
	result, err := s.Schedule(context.Background(), testutil.SetupSilo("1", 1), nil)
	suite.NoError(err)
	suite.Len(result.Unschedulable, 1)
	suite.Empty(result.Retryable)
}

func (suite *SchedulerTestSuite) TestLeaseRejectDoesNotChangeDecisions() {
	offerList := testutil.SetupRackOffers(4, 3, testutil.SingleTaskResources())
	tasks := append(testutil.SetupSilo("1", 4), testutil.SetupSilo("2", 4)...)

	plain := NewScheduler(firstfit.New(), affinity.NewHardConstraint(""))
	expected, err := plain.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)

	s := NewScheduler(
		firstfit.New(firstfit.WithLeaseReject(NewLeaseRejectLogger(suite.metrics))),
		affinity.NewHardConstraint(""))
	result, err := s.Schedule(context.Background(), tasks, offerList)
	suite.NoError(err)

	suite.Equal(suite.racks(expected), suite.racks(result))
	for i := range expected.Outcomes {
		suite.Equal(expected.Outcomes[i].Reason, result.Outcomes[i].Reason)
		if expected.Outcomes[i].State == Assigned {
			suite.Equal(
				expected.Outcomes[i].Assignment.Offer(),
				result.Outcomes[i].Assignment.Offer())
		}
	}
	suite.True(suite.counter("offers.rejected") > 0)
}

func (suite *SchedulerTestSuite) TestRegistryIsReadOnly() {
	s := NewScheduler(suite.mockEngine, affinity.NewHardConstraint(""))
	_, ok := s.Registry().(*registry.Registry)
	suite.False(ok)
	suite.NotEmpty(s.ID())
}
