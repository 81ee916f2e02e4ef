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

// Package event holds the notifications Onyx publishes about interviews,
// stage transitions and performed actions, and their Kafka transport.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/obiba/onyx/common/utils/uid"
)

type Event interface {
	GetName() string
	GetTimestamp() string
	GetInterviewId() uid.ID
}

type eventBase struct {
	Timestamp   string `json:"timestamp"`
	InterviewId uid.ID `json:"interviewId"`
}

func newEventBase(interviewId uid.ID) *eventBase {
	return &eventBase{
		Timestamp:   fmt.Sprintf("%d", time.Now().UnixMilli()),
		InterviewId: interviewId,
	}
}

func (e *eventBase) GetTimestamp() string {
	return e.Timestamp
}

func (e *eventBase) GetInterviewId() uid.ID {
	return e.InterviewId
}

type InterviewEvent struct {
	eventBase
	Participant string `json:"participant"`
	User        string `json:"user,omitempty"`
	Status      string `json:"status"`
}

func NewInterviewEvent(interviewId uid.ID, participant, user, status string) *InterviewEvent {
	return &InterviewEvent{
		eventBase:   *newEventBase(interviewId),
		Participant: participant,
		User:        user,
		Status:      status,
	}
}

func (e *InterviewEvent) GetName() string {
	return "InterviewEvent"
}

func (e *InterviewEvent) GetStatus() string {
	return e.Status
}

type StageTransitionEvent struct {
	eventBase
	Stage  string `json:"stage"`
	Module string `json:"module"`
	Event  string `json:"event"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
}

func NewStageTransitionEvent(interviewId uid.ID, stage, module, event, src, dst string) *StageTransitionEvent {
	return &StageTransitionEvent{
		eventBase: *newEventBase(interviewId),
		Stage:     stage,
		Module:    module,
		Event:     event,
		Src:       src,
		Dst:       dst,
	}
}

func (e *StageTransitionEvent) GetName() string {
	return "StageTransitionEvent"
}

func (e *StageTransitionEvent) GetStage() string {
	return e.Stage
}

type ActionEvent struct {
	eventBase
	ActionId uid.ID `json:"actionId"`
	Stage    string `json:"stage"`
	Type     string `json:"type"`
	User     string `json:"user"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

func NewActionEvent(interviewId, actionId uid.ID, stage, actionType, user, state string, err error) *ActionEvent {
	e := &ActionEvent{
		eventBase: *newEventBase(interviewId),
		ActionId:  actionId,
		Stage:     stage,
		Type:      actionType,
		User:      user,
		State:     state,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (e *ActionEvent) GetName() string {
	return "ActionEvent"
}

func (e *ActionEvent) GetStage() string {
	return e.Stage
}

// Envelope is what travels on the wire: exactly one payload is set.
type Envelope struct {
	Timestamp  int64                 `json:"timestamp"`
	Name       string                `json:"name"`
	Interview  *InterviewEvent       `json:"interview,omitempty"`
	Transition *StageTransitionEvent `json:"transition,omitempty"`
	Action     *ActionEvent          `json:"action,omitempty"`
}

func Wrap(e Event, timestamp time.Time) (*Envelope, error) {
	env := &Envelope{
		Timestamp: timestamp.UnixMilli(),
		Name:      e.GetName(),
	}
	switch e := e.(type) {
	case *InterviewEvent:
		env.Interview = e
	case *StageTransitionEvent:
		env.Transition = e
	case *ActionEvent:
		env.Action = e
	default:
		return nil, fmt.Errorf("unsupported event type %T", e)
	}
	return env, nil
}

// Payload returns the wrapped event.
func (env *Envelope) Payload() Event {
	switch {
	case env.Interview != nil:
		return env.Interview
	case env.Transition != nil:
		return env.Transition
	case env.Action != nil:
		return env.Action
	}
	return nil
}

func (env *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(env)
}

func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Payload() == nil {
		return nil, fmt.Errorf("event %q carries no payload", env.Name)
	}
	return &env, nil
}
