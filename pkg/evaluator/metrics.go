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

package evaluator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	nodeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_node_results_total",
			Help: "Total number of evaluated nodes by status",
		},
		[]string{"status"},
	)

	nodeBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kiln_node_build_duration_seconds",
			Help:    "Time to build and publish one node",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		},
	)

	phaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kiln_node_phase_duration_seconds",
			Help:    "Lifecycle phase latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"phase"},
	)
)
