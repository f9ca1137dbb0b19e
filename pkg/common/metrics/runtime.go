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

package metrics

import (
	"runtime"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	uatomic "go.uber.org/atomic"
)

// Closer closes the runtime metrics collection
type Closer func()

// _numGCThreshold comes from the PauseNs buffer size https://golang.org/pkg/runtime/#MemStats
var _numGCThreshold = uint32(256)

// StartCollectingRuntimeMetrics starts generating runtime metrics under the
// "runtime" sub scope of the given scope every collectInterval.
func StartCollectingRuntimeMetrics(
	scope tally.Scope,
	cfg RuntimeConfig,
) Closer {
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = TallyFlushInterval
	}
	collector := NewRuntimeCollector(scope.SubScope("runtime"), interval)
	if cfg.Enable {
		collector.Start()
	}
	return collector.close
}

type runtimeMetrics struct {
	numGoRoutines   tally.Gauge
	goMaxProcs      tally.Gauge
	memoryAllocated tally.Gauge
	memoryHeap      tally.Gauge
	memoryStack     tally.Gauge
	numGC           tally.Counter
	gcPauseMs       tally.Timer
	lastNumGC       uint32
}

// RuntimeCollector emits the go runtime metrics of the process.
type RuntimeCollector struct {
	collectInterval time.Duration
	metrics         runtimeMetrics
	started         uatomic.Bool
	stopped         uatomic.Bool
	quit            chan struct{}
}

// NewRuntimeCollector creates a new RuntimeCollector.
func NewRuntimeCollector(scope tally.Scope, collectInterval time.Duration) *RuntimeCollector {
	var memstats runtime.MemStats
	runtime.ReadMemStats(&memstats)
	return &RuntimeCollector{
		collectInterval: collectInterval,
		metrics: runtimeMetrics{
			numGoRoutines:   scope.Gauge("num_goroutines"),
			goMaxProcs:      scope.Gauge("gomaxprocs"),
			memoryAllocated: scope.Gauge("memory_allocated"),
			memoryHeap:      scope.Gauge("memory_heap"),
			memoryStack:     scope.Gauge("memory_stack"),
			numGC:           scope.Counter("memory_num_gc"),
			gcPauseMs:       scope.Timer("memory_gc_pause_ms"),
			lastNumGC:       memstats.NumGC,
		},
		quit: make(chan struct{}),
	}
}

// IsRunning returns true if the collector has been started and not closed.
func (r *RuntimeCollector) IsRunning() bool {
	return r.started.Load() && !r.stopped.Load()
}

// Start starts the go-routine that periodically emits metrics.
func (r *RuntimeCollector) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	log.WithField("interval", r.collectInterval).
		Debug("Starting runtime metrics collection")
	go func() {
		ticker := time.NewTicker(r.collectInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.generate()
			case <-r.quit:
				return
			}
		}
	}()
}

// generate updates the runtime metrics.
func (r *RuntimeCollector) generate() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	r.metrics.numGoRoutines.Update(float64(runtime.NumGoroutine()))
	r.metrics.goMaxProcs.Update(float64(runtime.GOMAXPROCS(0)))
	r.metrics.memoryAllocated.Update(float64(memStats.Alloc))
	r.metrics.memoryHeap.Update(float64(memStats.HeapAlloc))
	r.metrics.memoryStack.Update(float64(memStats.StackInuse))

	// memStats.NumGC only grows, unless it wraps at 2^32.
	num := memStats.NumGC
	lastNum := atomic.SwapUint32(&r.metrics.lastNumGC, num)
	if delta := num - lastNum; delta > 0 {
		r.metrics.numGC.Inc(int64(delta))
		// Only the last _numGCThreshold pauses are kept by the runtime.
		if delta >= _numGCThreshold {
			lastNum = num - _numGCThreshold
		}
		for i := lastNum; i != num; i++ {
			pause := memStats.PauseNs[i%256]
			r.metrics.gcPauseMs.Record(time.Duration(pause))
		}
	}
}

// close stops collecting runtime metrics. It cannot be started again after it's
// been stopped.
func (r *RuntimeCollector) close() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.quit)
	}
}
