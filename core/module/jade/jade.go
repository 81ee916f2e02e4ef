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

// Package jade is the instrument measurement module: a participant is
// measured on an instrument, the measurement can be interrupted, resumed,
// skipped or canceled.
package jade

import (
	"sync"
	"time"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/module"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/sm"
)

const Name = "jade"

type RunStatus string

const (
	RUN_IN_PROGRESS RunStatus = "IN_PROGRESS"
	RUN_INTERRUPTED RunStatus = "INTERRUPTED"
	RUN_COMPLETED   RunStatus = "COMPLETED"
	RUN_CANCELED    RunStatus = "CANCELED"
)

// InstrumentRun tracks one measurement of a participant on the instrument
// of a stage.
type InstrumentRun struct {
	InterviewId uid.ID    `json:"interviewId"`
	Stage       string    `json:"stage"`
	Status      RunStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt,omitempty"`
}

type runKey struct {
	interviewId uid.ID
	stage       string
}

type runRegistry struct {
	mu sync.Mutex
	m  map[runKey]*InstrumentRun
}

func newRunRegistry() *runRegistry {
	return &runRegistry{m: make(map[runKey]*InstrumentRun)}
}

func (r *runRegistry) start(k runKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.m[k]
	if !ok {
		run = &InstrumentRun{InterviewId: k.interviewId, Stage: k.stage}
		r.m[k] = run
	}
	run.Status = RUN_IN_PROGRESS
	run.Attempts++
	run.StartedAt = time.Now()
	run.EndedAt = time.Time{}
}

func (r *runRegistry) resume(k runKey) {
	r.mu.Lock()
	run, ok := r.m[k]
	if ok {
		run.Status = RUN_IN_PROGRESS
		run.EndedAt = time.Time{}
	}
	r.mu.Unlock()
	if !ok {
		r.start(k)
	}
}

func (r *runRegistry) finish(k runKey, status RunStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.m[k]; ok {
		run.Status = status
		run.EndedAt = time.Now()
	}
}

func (r *runRegistry) get(k runKey) (InstrumentRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.m[k]
	if !ok {
		return InstrumentRun{}, false
	}
	return *run, true
}

func (r *runRegistry) forget(interviewId uid.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.m {
		if k.interviewId == interviewId {
			delete(r.m, k)
		}
	}
}

type Module struct {
	*module.Base
	runs *runRegistry
}

func New() module.Module {
	return NewModule()
}

func NewModule() *Module {
	m := &Module{runs: newRunRegistry()}
	m.Base = module.NewBase(Name, m.build)
	return m
}

func (m *Module) build(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error) {
	key := runKey{interviewId: interviewId, stage: st.Name}

	waiting := newWaitingState(st)
	ready := newReadyState(st)
	inProgress := newInProgressState(st, key, m.runs)
	interrupted := newInterruptedState(st, key, m.runs)
	completed := newCompletedState(st, key, m.runs)
	skipped := newSkippedState(st)

	initial := stage.State(ready)
	if st.HasDependency() {
		initial = waiting
	}

	return module.NewGraph(stage.NewExecutionContext(interviewId, st)).
		Edge(waiting, sm.VALID, ready).
		Edge(ready, sm.INVALID, waiting).
		Edge(ready, sm.START, inProgress).
		Edge(ready, sm.SKIP, skipped).
		Edge(inProgress, sm.CANCEL, ready).
		Edge(inProgress, sm.INTERRUPT, interrupted).
		Edge(inProgress, sm.COMPLETE, completed).
		Edge(interrupted, sm.RESUME, inProgress).
		Edge(interrupted, sm.CANCEL, ready).
		Edge(skipped, sm.CANCEL, ready).
		Edge(skipped, sm.INVALID, waiting).
		Edge(completed, sm.CANCEL, ready).
		Edge(completed, sm.INVALID, waiting).
		Initial(initial).
		Build()
}

// InstrumentRun returns a copy of the latest run of the stage.
func (m *Module) InstrumentRun(interviewId uid.ID, stageName string) (InstrumentRun, bool) {
	return m.runs.get(runKey{interviewId: interviewId, stage: stageName})
}

func (m *Module) Forget(interviewId uid.ID) {
	m.Base.Forget(interviewId)
	m.runs.forget(interviewId)
}
