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

package stage

import (
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
	"github.com/valyala/fasttemplate"
)

// State is one logical state of a stage, e.g. "ready" or "inProgress".
//
// Lifecycle handlers never touch the execution context. They return the
// event the context should dispatch next, or sm.NONE to stay put.
type State interface {
	Name() string

	ActionDefinitions() action.Definitions
	SystemActionDefinitions() action.Definitions
	ActionDefinition(t action.Type) (action.Definition, bool)
	SystemActionDefinition(t action.Type) (action.Definition, bool)

	Execute(a *action.Action) sm.Event
	Interrupt(a *action.Action) sm.Event
	Skip(a *action.Action) sm.Event
	Stop(a *action.Action) sm.Event
	Complete(a *action.Action) sm.Event

	IsCompleted() bool
	IsFinal() bool
	IsInteractive() bool

	// Message is the status line shown to the operator for this state.
	Message() string

	// OnExit may refuse the transition by returning an error.
	OnExit(t sm.Transition) error
	// OnEnter may request a follow-up event, dispatched once the current
	// transition is complete.
	OnEnter(t sm.Transition) sm.Event
}

// BaseState implements State with no-op handlers and false predicates.
// Concrete states embed it and override what they need.
type BaseState struct {
	StateName       string
	Stage           *Stage
	UserActions     action.Definitions
	SystemActions   action.Definitions
	MessageTemplate string
}

func NewBaseState(name string, st *Stage) BaseState {
	return BaseState{
		StateName:       name,
		Stage:           st,
		MessageTemplate: "{label}: {state}",
	}
}

func (s *BaseState) Name() string {
	return s.StateName
}

func (s *BaseState) ActionDefinitions() action.Definitions {
	return s.UserActions
}

func (s *BaseState) SystemActionDefinitions() action.Definitions {
	return s.SystemActions
}

func (s *BaseState) ActionDefinition(t action.Type) (action.Definition, bool) {
	return s.UserActions.Find(t)
}

func (s *BaseState) SystemActionDefinition(t action.Type) (action.Definition, bool) {
	return s.SystemActions.Find(t)
}

func (s *BaseState) AddAction(def action.Definition) {
	s.UserActions = append(s.UserActions, def)
}

func (s *BaseState) AddSystemAction(def action.Definition) {
	s.SystemActions = append(s.SystemActions, def)
}

func (s *BaseState) Execute(*action.Action) sm.Event   { return sm.NONE }
func (s *BaseState) Interrupt(*action.Action) sm.Event { return sm.NONE }
func (s *BaseState) Skip(*action.Action) sm.Event      { return sm.NONE }
func (s *BaseState) Stop(*action.Action) sm.Event      { return sm.NONE }
func (s *BaseState) Complete(*action.Action) sm.Event  { return sm.NONE }

func (s *BaseState) IsCompleted() bool   { return false }
func (s *BaseState) IsFinal() bool       { return false }
func (s *BaseState) IsInteractive() bool { return false }

func (s *BaseState) OnExit(sm.Transition) error       { return nil }
func (s *BaseState) OnEnter(sm.Transition) sm.Event { return sm.NONE }

// Message renders MessageTemplate, where {stage}, {label} and {state} are
// substituted.
func (s *BaseState) Message() string {
	if len(s.MessageTemplate) == 0 {
		return ""
	}
	stageName, label := "", ""
	if s.Stage != nil {
		stageName = s.Stage.Name
		label = s.Stage.DisplayLabel()
	}
	return fasttemplate.ExecuteString(s.MessageTemplate, "{", "}", map[string]interface{}{
		"stage": stageName,
		"label": label,
		"state": s.StateName,
	})
}
