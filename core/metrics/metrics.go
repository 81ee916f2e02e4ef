/*
 * === This file is part of OBiBa Onyx ===
 *
 * Copyright 2026 OBiBa and copyright holders of Onyx.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Subsystem = "onyx_core"
)

var (
	TransitionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "transition_count",
		Help:      "The number of executed stage transitions, by module and event.",
	}, []string{"module", "event"})
	TransitionIgnoredCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "transition_ignored_count",
		Help:      "The number of events cast with no edge from the current state.",
	}, []string{"module", "event"})
	TransitionCanceledCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "transition_canceled_count",
		Help:      "The number of transitions refused by the state being left.",
	}, []string{"module", "event"})
	ActionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "action_count",
		Help:      "The number of actions performed on stages, by type.",
	}, []string{"type"})
	ActionRejectedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "action_rejected_count",
		Help:      "The number of actions refused because the current state does not offer them.",
	}, []string{"type"})
	ContextsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      "contexts_built",
		Help:      "The number of stage execution contexts built, by module.",
	}, []string{"module"})
	InterviewsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: Subsystem,
		Name:      "interviews_open",
		Help:      "The number of interviews currently held in memory.",
	})
	StoreLatency = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Subsystem: Subsystem,
		Name:      "store_latency",
		Help:      "Time to execute store calls, by operation.",
	}, []string{"op"})
)

var registerMetrics sync.Once

func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(TransitionCount)
		prometheus.MustRegister(TransitionIgnoredCount)
		prometheus.MustRegister(TransitionCanceledCount)
		prometheus.MustRegister(ActionCount)
		prometheus.MustRegister(ActionRejectedCount)
		prometheus.MustRegister(ContextsBuilt)
		prometheus.MustRegister(InterviewsOpen)
		prometheus.MustRegister(StoreLatency)
	})
}
