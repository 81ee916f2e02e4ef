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

package jade

import (
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
)

const (
	WAITING     = "waiting"
	READY       = "ready"
	IN_PROGRESS = "inProgress"
	INTERRUPTED = "interrupted"
	COMPLETED   = "completed"
	SKIPPED     = "skipped"
)

// SkipReasons are the reasons an operator may give for skipping a
// measurement.
var SkipReasons = []string{"participantRefused", "participantUnable", "instrumentUnavailable", "other"}

type waitingState struct {
	stage.BaseState
}

func newWaitingState(st *stage.Stage) *waitingState {
	s := &waitingState{BaseState: stage.NewBaseState(WAITING, st)}
	s.MessageTemplate = "{label} is waiting for the stages it depends on"
	return s
}

type readyState struct {
	stage.BaseState
}

func newReadyState(st *stage.Stage) *readyState {
	s := &readyState{BaseState: stage.NewBaseState(READY, st)}
	s.AddAction(action.NewDefinition(action.EXECUTE, "Start").
		WithDescription("Start the measurement"))
	s.AddAction(action.NewDefinition(action.SKIP, "Skip").
		WithDescription("Do not perform this measurement").
		WithReasons(SkipReasons...))
	s.MessageTemplate = "{label} is ready"
	return s
}

func (s *readyState) Execute(*action.Action) sm.Event { return sm.START }
func (s *readyState) Skip(*action.Action) sm.Event    { return sm.SKIP }

type inProgressState struct {
	stage.BaseState
	key  runKey
	runs *runRegistry
}

func newInProgressState(st *stage.Stage, key runKey, runs *runRegistry) *inProgressState {
	s := &inProgressState{BaseState: stage.NewBaseState(IN_PROGRESS, st), key: key, runs: runs}
	s.AddAction(action.NewDefinition(action.INTERRUPT, "Interrupt").
		WithDescription("Pause the measurement, it can be resumed later"))
	s.AddAction(action.NewDefinition(action.STOP, "Cancel").
		WithDescription("Discard the measurement").
		WithComment())
	s.AddSystemAction(action.NewDefinition(action.COMPLETE, "Complete"))
	s.MessageTemplate = "{label} measurement in progress"
	return s
}

func (s *inProgressState) Interrupt(*action.Action) sm.Event { return sm.INTERRUPT }
func (s *inProgressState) Stop(*action.Action) sm.Event      { return sm.CANCEL }
func (s *inProgressState) Complete(*action.Action) sm.Event  { return sm.COMPLETE }
func (s *inProgressState) IsInteractive() bool               { return true }

func (s *inProgressState) OnEnter(t sm.Transition) sm.Event {
	if t.Evt == sm.RESUME {
		s.runs.resume(s.key)
	} else {
		s.runs.start(s.key)
	}
	return sm.NONE
}

func (s *inProgressState) OnExit(t sm.Transition) error {
	switch t.Evt {
	case sm.COMPLETE:
		s.runs.finish(s.key, RUN_COMPLETED)
	case sm.INTERRUPT:
		s.runs.finish(s.key, RUN_INTERRUPTED)
	case sm.CANCEL:
		s.runs.finish(s.key, RUN_CANCELED)
	}
	return nil
}

type interruptedState struct {
	stage.BaseState
	key  runKey
	runs *runRegistry
}

func newInterruptedState(st *stage.Stage, key runKey, runs *runRegistry) *interruptedState {
	s := &interruptedState{BaseState: stage.NewBaseState(INTERRUPTED, st), key: key, runs: runs}
	s.AddAction(action.NewDefinition(action.EXECUTE, "Resume"))
	s.AddAction(action.NewDefinition(action.STOP, "Cancel").WithComment())
	s.MessageTemplate = "{label} measurement interrupted"
	return s
}

func (s *interruptedState) Execute(*action.Action) sm.Event { return sm.RESUME }
func (s *interruptedState) Stop(*action.Action) sm.Event    { return sm.CANCEL }

func (s *interruptedState) OnExit(t sm.Transition) error {
	if t.Evt == sm.CANCEL {
		s.runs.finish(s.key, RUN_CANCELED)
	}
	return nil
}

type completedState struct {
	stage.BaseState
	key  runKey
	runs *runRegistry
}

func newCompletedState(st *stage.Stage, key runKey, runs *runRegistry) *completedState {
	s := &completedState{BaseState: stage.NewBaseState(COMPLETED, st), key: key, runs: runs}
	s.AddAction(action.NewDefinition(action.STOP, "Cancel").
		WithDescription("Discard the measurement and start over").
		WithComment())
	s.MessageTemplate = "{label} completed"
	return s
}

func (s *completedState) Stop(*action.Action) sm.Event { return sm.CANCEL }
func (s *completedState) IsCompleted() bool            { return true }
func (s *completedState) IsFinal() bool                { return true }

// OnExit discards the run when a completed measurement is canceled or its
// dependencies no longer hold.
func (s *completedState) OnExit(sm.Transition) error {
	s.runs.finish(s.key, RUN_CANCELED)
	return nil
}

type skippedState struct {
	stage.BaseState
}

func newSkippedState(st *stage.Stage) *skippedState {
	s := &skippedState{BaseState: stage.NewBaseState(SKIPPED, st)}
	s.AddAction(action.NewDefinition(action.STOP, "Cancel skip"))
	s.MessageTemplate = "{label} skipped"
	return s
}

func (s *skippedState) Stop(*action.Action) sm.Event { return sm.CANCEL }
func (s *skippedState) IsFinal() bool                { return true }
