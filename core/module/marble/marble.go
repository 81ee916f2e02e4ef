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

// Package marble is the consent module. Consent is either accepted, which
// completes the stage, or refused, which ends it without completing it.
package marble

import (
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/module"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
)

const Name = "marble"

const (
	WAITING     = "waiting"
	READY       = "ready"
	IN_PROGRESS = "inProgress"
	COMPLETED   = "completed"
	REFUSED     = "refused"
)

const (
	REASON_ACCEPTED = "accepted"
	REASON_REFUSED  = "refused"
)

// REFUSE is cast when the participant declines consent.
var REFUSE = sm.NewEvent("REFUSE")

type waitingState struct {
	stage.BaseState
}

type readyState struct {
	stage.BaseState
}

func (s *readyState) Execute(*action.Action) sm.Event { return sm.START }

type inProgressState struct {
	stage.BaseState
}

func (s *inProgressState) Complete(a *action.Action) sm.Event {
	if a.Reason == REASON_REFUSED {
		return REFUSE
	}
	return sm.COMPLETE
}
func (s *inProgressState) Interrupt(*action.Action) sm.Event { return sm.INTERRUPT }
func (s *inProgressState) Stop(*action.Action) sm.Event      { return sm.CANCEL }
func (s *inProgressState) IsInteractive() bool               { return true }

type completedState struct {
	stage.BaseState
}

func (s *completedState) Stop(*action.Action) sm.Event { return sm.CANCEL }
func (s *completedState) IsCompleted() bool            { return true }
func (s *completedState) IsFinal() bool                { return true }

type refusedState struct {
	stage.BaseState
}

func (s *refusedState) Stop(*action.Action) sm.Event { return sm.CANCEL }
func (s *refusedState) IsFinal() bool                { return true }

type Module struct {
	*module.Base
}

func New() module.Module {
	m := &Module{}
	m.Base = module.NewBase(Name, build)
	return m
}

func build(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error) {
	waiting := &waitingState{BaseState: stage.NewBaseState(WAITING, st)}
	waiting.MessageTemplate = "{label} is waiting for the stages it depends on"

	ready := &readyState{BaseState: stage.NewBaseState(READY, st)}
	ready.AddAction(action.NewDefinition(action.EXECUTE, "Start").
		WithDescription("Collect the participant's consent"))
	ready.MessageTemplate = "{label} is ready"

	inProgress := &inProgressState{BaseState: stage.NewBaseState(IN_PROGRESS, st)}
	inProgress.AddAction(action.NewDefinition(action.COMPLETE, "Record consent").
		WithReasons(REASON_ACCEPTED, REASON_REFUSED))
	inProgress.AddAction(action.NewDefinition(action.INTERRUPT, "Interrupt"))
	inProgress.AddAction(action.NewDefinition(action.STOP, "Cancel").WithComment())
	inProgress.MessageTemplate = "{label} is being collected"

	completed := &completedState{BaseState: stage.NewBaseState(COMPLETED, st)}
	completed.AddAction(action.NewDefinition(action.STOP, "Withdraw").WithComment())
	completed.MessageTemplate = "{label} given"

	refused := &refusedState{BaseState: stage.NewBaseState(REFUSED, st)}
	refused.AddAction(action.NewDefinition(action.STOP, "Cancel refusal").WithComment())
	refused.MessageTemplate = "{label} refused"

	initial := stage.State(ready)
	if st.HasDependency() {
		initial = waiting
	}

	return module.NewGraph(stage.NewExecutionContext(interviewId, st)).
		Edge(waiting, sm.VALID, ready).
		Edge(ready, sm.INVALID, waiting).
		Edge(ready, sm.START, inProgress).
		Edge(inProgress, sm.COMPLETE, completed).
		Edge(inProgress, REFUSE, refused).
		Edge(inProgress, sm.CANCEL, ready).
		Edge(inProgress, sm.INTERRUPT, ready).
		Edge(completed, sm.CANCEL, ready).
		Edge(completed, sm.INVALID, waiting).
		Edge(refused, sm.CANCEL, ready).
		Edge(refused, sm.INVALID, waiting).
		Initial(initial).
		Build()
}
