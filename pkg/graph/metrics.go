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

package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	graphResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_graph_resolutions_total",
			Help: "Total number of graph resolutions by result",
		},
		[]string{"result"},
	)

	graphResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kiln_graph_resolution_duration_seconds",
			Help:    "Graph resolution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	graphNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kiln_graph_nodes",
			Help:    "Number of nodes in resolved graphs",
			Buckets: prometheus.LinearBuckets(1, 4, 10),
		},
	)
)
