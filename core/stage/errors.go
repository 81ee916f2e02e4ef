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
	"errors"
	"fmt"

	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
)

var (
	ErrNoInitialState  = errors.New("no initial state set")
	ErrInitialStateSet = errors.New("initial state already set")
	ErrSealed          = errors.New("execution context already started, graph is read-only")
	ErrBadFilter       = errors.New("bad stage filter")
)

type DuplicateEdgeError struct {
	State     string
	Event     sm.Event
	Existing  string
	Requested string
}

func (e DuplicateEdgeError) Error() string {
	return fmt.Sprintf("edge %s --%s--> already leads to %s, cannot redirect to %s", e.State, e.Event, e.Existing, e.Requested)
}

type DuplicateStateError struct {
	Name string
}

func (e DuplicateStateError) Error() string {
	return fmt.Sprintf("another state named %s is already registered", e.Name)
}

type UnknownStateError struct {
	Name string
}

func (e UnknownStateError) Error() string {
	return fmt.Sprintf("state %s not found", e.Name)
}

// UnmappedTransitionError is returned by Fire when the current state has no
// edge for the event. The state is left unchanged.
type UnmappedTransitionError struct {
	Stage string
	State string
	Event sm.Event
}

func (e *UnmappedTransitionError) Error() string {
	return fmt.Sprintf("stage %s: no transition from %s on %s", e.Stage, e.State, e.Event)
}

// CanceledTransitionError is returned when the state being left refuses
// the transition.
type CanceledTransitionError struct {
	Transition sm.Transition
	Err        error
}

func (e *CanceledTransitionError) Error() string {
	return fmt.Sprintf("transition %s --%s--> %s canceled: %v", e.Transition.Src, e.Transition.Evt, e.Transition.Dst, e.Err)
}

func (e *CanceledTransitionError) Unwrap() error {
	return e.Err
}

// ActionNotAllowedError is returned when the current state does not define
// the requested action.
type ActionNotAllowedError struct {
	Stage string
	State string
	Type  action.Type
}

func (e *ActionNotAllowedError) Error() string {
	return fmt.Sprintf("stage %s: action %s not allowed in state %s", e.Stage, e.Type, e.State)
}

type StageNotFoundError struct {
	Name string
}

func (e StageNotFoundError) Error() string {
	return fmt.Sprintf("stage %s not found", e.Name)
}

func IsUnmapped(err error) bool {
	var target *UnmappedTransitionError
	return errors.As(err, &target)
}
