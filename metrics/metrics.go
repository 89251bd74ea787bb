/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package metrics exposes a worker's Prometheus metrics: how many commands
of each kind ran and how they finished, how long they took, and how many
artifacts the local Object Registry is currently holding.

No teacher package covers this concern (the teacher's console/query-
server tools have no metrics surface); the shape below is grounded on
the pack's github.com/prometheus/client_golang usage rather than on
teacher code.
*/
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krotik/common/logutil"
)

const namespace = "grape"

/*
Metrics holds every Prometheus collector a worker updates while
dispatching commands.
*/
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	RegistryObjects prometheus.Gauge
}

/*
New registers a fresh set of collectors against reg. Passing
prometheus.NewRegistry() (rather than the global DefaultRegisterer)
keeps repeated calls in tests from panicking on duplicate registration.
*/
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of dispatched commands by kind and outcome.",
		}, []string{"kind", "outcome"}),

		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command handling latency in seconds, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),

		RegistryObjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_objects",
			Help:      "Number of artifacts currently held in the Object Registry.",
		}),
	}
}

/*
Outcome is the label value CommandsTotal is incremented under.
*/
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

/*
Observe records one command's outcome and latency in seconds.
*/
func (m *Metrics) Observe(kind string, outcome Outcome, seconds float64) {
	m.CommandsTotal.WithLabelValues(kind, string(outcome)).Inc()
	m.CommandDuration.WithLabelValues(kind).Observe(seconds)
}

/*
SetRegistrySize updates the registry size gauge.
*/
func (m *Metrics) SetRegistrySize(n int) {
	m.RegistryObjects.Set(float64(n))
}

/*
Serve starts an HTTP server exposing reg's collectors at /metrics on
addr, matching SPEC_FULL.md's "exposed over /metrics on
MetricsListenAddress when EnableMetrics is set". It blocks until ctx is
cancelled or the server fails to start.
*/
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	log := logutil.GetLogger("grape.metrics")

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening on ", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
