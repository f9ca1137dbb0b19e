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

package main

import (
	"context"
	"io"
	nethttp "net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/alecthomas/kingpin.v2"

	common_config "github.com/uber/silo/pkg/common/config"
	"github.com/uber/silo/pkg/common/logging"
	"github.com/uber/silo/pkg/common/metrics"
	"github.com/uber/silo/pkg/placement"
	"github.com/uber/silo/pkg/placement/affinity"
	"github.com/uber/silo/pkg/placement/config"
	tally_metrics "github.com/uber/silo/pkg/placement/metrics"
	"github.com/uber/silo/pkg/placement/offers"
	"github.com/uber/silo/pkg/placement/plugins/firstfit"
	"github.com/uber/silo/pkg/placement/tasks"
)

const _appName = "silo-placement"

var (
	version string
	app     = kingpin.New(_appName, "Rack affinity silo placement engine")

	debug = app.Flag(
		"debug", "enable debug logging").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		ExistingFiles()

	offerFile = app.Flag(
		"offers", "YAML file holding the offers of the cluster").
		Required().
		Envar("OFFER_FILE").
		ExistingFile()

	taskFile = app.Flag(
		"tasks", "YAML file holding the tasks to place, in submission order").
		Required().
		Envar("TASK_FILE").
		ExistingFile()

	outputFile = app.Flag(
		"output", "File the placements are written to, stdout by default").
		Short('o').
		Envar("OUTPUT_FILE").
		String()

	affinityMode = app.Flag(
		"affinity-mode", "Rack affinity mode (placement.affinity_mode override)").
		Envar("AFFINITY_MODE").
		Enum(string(affinity.Hard), string(affinity.Soft))

	httpPort = app.Flag(
		"http-port",
		"Port serving metrics and the logging level endpoint "+
			"(placement.http_port override)").
		Envar("HTTP_PORT").
		Int()
)

// flags holds the command line overrides of the config.
type flags struct {
	affinityMode string
	httpPort     int
}

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(*cfgFiles)
	if err != nil {
		log.WithError(err).Fatal("Cannot parse yaml config")
	}
	overrideConfig(&cfg, flags{affinityMode: *affinityMode, httpPort: *httpPort})
	if err := cfg.Placement.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid placement config")
	}

	initialLevel, err := logging.Configure(cfg.Logging, app.Name, *debug)
	if err != nil {
		log.WithError(err).Fatal("Invalid logging config")
	}
	log.WithField("config", cfg).Info("Completed loading placement engine config")

	out := io.Writer(os.Stdout)
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			log.WithError(err).Fatal("Cannot create output file")
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, initialLevel, *offerFile, *taskFile, out); err != nil {
		log.WithError(err).Error("Placement failed")
		stop()
		os.Exit(1)
	}
}

// loadConfig returns the default config merged with the given files.
func loadConfig(files []string) (config.Config, error) {
	cfg := config.Config{Placement: config.Default()}
	if len(files) == 0 {
		return cfg, nil
	}
	log.WithField("files", files).Info("Loading placement engine config")
	err := common_config.Parse(&cfg, files...)
	return cfg, err
}

// overrideConfig applies the command line flags to the loaded config.
func overrideConfig(cfg *config.Config, f flags) {
	if f.affinityMode != "" {
		cfg.Placement.AffinityMode = affinity.Mode(f.affinityMode)
	}
	if f.httpPort != 0 {
		cfg.Placement.HTTPPort = f.httpPort
	}
}

// run places the tasks of the task file onto the offers of the offer file
// and writes the placements to out.
func run(
	ctx context.Context,
	cfg config.Config,
	initialLevel log.Level,
	offerPath string,
	taskPath string,
	out io.Writer) error {
	rootScope, scopeCloser, mux, err := metrics.InitMetricScope(
		&cfg.Metrics,
		_appName,
		metrics.TallyFlushInterval,
	)
	if err != nil {
		return err
	}
	defer scopeCloser.Close()
	defer metrics.StartCollectingRuntimeMetrics(rootScope, cfg.Metrics.Runtime)()

	mux.HandleFunc(logging.LevelOverwrite, logging.LevelOverwriteHandler(initialLevel))
	if cfg.Placement.HTTPPort != 0 {
		server := &nethttp.Server{
			Addr:    ":" + strconv.Itoa(cfg.Placement.HTTPPort),
			Handler: mux,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
				log.WithError(err).Error("HTTP server failed")
			}
		}()
		defer server.Shutdown(context.Background())
	}

	tallyMetrics := tally_metrics.NewMetrics(rootScope.SubScope("placement"))

	evaluator, err := cfg.Placement.Evaluator()
	if err != nil {
		return errors.Wrap(err, "failed to create affinity evaluator")
	}
	strategy := firstfit.New(
		firstfit.WithConcurrency(cfg.Placement.Concurrency),
		firstfit.WithAffinityWeight(cfg.Placement.AffinityWeight),
		firstfit.WithLeaseReject(placement.NewLeaseRejectLogger(tallyMetrics)),
	)
	scheduler := placement.NewScheduler(
		strategy,
		evaluator,
		placement.WithMetrics(tallyMetrics),
		placement.WithPlacementTimeout(cfg.Placement.PlacementTimeout),
		placement.WithRetryPolicy(cfg.Placement.RetryPolicy()),
	)

	engine := placement.NewEngine(
		offers.NewFileService(offerPath, tallyMetrics),
		tasks.NewFileService(taskPath, out),
		scheduler,
	)

	log.Info("Start the placement engine")
	summary, err := engine.Place(ctx)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"session_id":        scheduler.ID(),
		"cycles":            summary.Cycles,
		"num_assigned":      len(summary.Assigned),
		"num_unschedulable": len(summary.Unschedulable),
	}).Info("Placement engine finished")
	return nil
}
