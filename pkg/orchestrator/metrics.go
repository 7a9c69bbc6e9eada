// Copyright (c) 2025, The Kiln Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_build_runs_total",
			Help: "Total number of graph builds by result",
		},
		[]string{"result"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kiln_build_run_duration_seconds",
			Help:    "Wall time of a whole graph build",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	nodesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kiln_build_nodes_in_flight",
			Help: "Number of nodes currently building",
		},
	)
)
