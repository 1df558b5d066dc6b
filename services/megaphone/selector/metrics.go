// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package selector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeListDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "megaphone_active_list_duration_seconds",
		Help:    "Time to compute the ordered active megaphone list",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	activeListCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "megaphone_active_list_candidates",
		Help:    "Number of candidates returned by an active list computation",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "megaphone_mutations_total",
		Help: "Megaphone state mutations by operation and outcome",
	}, []string{"operation", "status"})
)
