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
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/looplab/fsm"
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/metrics"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
)

// TransitionEventSink accepts events from outside the state graph, e.g.
// dependency changes or instrument callbacks.
type TransitionEventSink interface {
	CastEvent(e sm.Event)
}

// TransitionListener is notified after every executed transition, outside
// of the context lock.
type TransitionListener func(ec *ExecutionContext, t sm.Transition)

type edgeKey struct {
	state string
	event sm.Event
}

// ExecutionContext is the state machine of one stage of one interview.
//
// The graph is built with AddEdge and SetInitialState, then sealed by the
// first dispatched event or Restore. Every (state, event) pair leads to at
// most one state.
type ExecutionContext struct {
	transitionMutex sync.Mutex
	listenersMu     sync.RWMutex

	interviewId uid.ID
	stage       *Stage

	states  map[string]State
	edges   map[edgeKey]string
	initial string
	sealed  bool

	Sm        *fsm.FSM
	pending   []sm.Event
	executed  []sm.Transition
	listeners []TransitionListener
}

func NewExecutionContext(interviewId uid.ID, st *Stage) *ExecutionContext {
	return &ExecutionContext{
		interviewId: interviewId,
		stage:       st,
		states:      make(map[string]State),
		edges:       make(map[edgeKey]string),
	}
}

func (ec *ExecutionContext) InterviewId() uid.ID {
	return ec.interviewId
}

func (ec *ExecutionContext) Stage() *Stage {
	return ec.stage
}

func (ec *ExecutionContext) moduleName() string {
	if ec.stage == nil {
		return ""
	}
	return ec.stage.Module
}

func (ec *ExecutionContext) stageName() string {
	if ec.stage == nil {
		return ""
	}
	return ec.stage.Name
}

func (ec *ExecutionContext) register(s State) error {
	existing, ok := ec.states[s.Name()]
	if ok && existing != s {
		return DuplicateStateError{Name: s.Name()}
	}
	ec.states[s.Name()] = s
	return nil
}

// AddEdge registers from --e--> to. Registering the same edge twice is a
// no-op; pointing an existing (from, e) pair elsewhere fails.
func (ec *ExecutionContext) AddEdge(from State, e sm.Event, to State) error {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()

	if ec.sealed {
		return ErrSealed
	}
	if err := ec.register(from); err != nil {
		return err
	}
	if err := ec.register(to); err != nil {
		return err
	}
	key := edgeKey{state: from.Name(), event: e}
	if dst, ok := ec.edges[key]; ok {
		if dst == to.Name() {
			return nil
		}
		return DuplicateEdgeError{State: from.Name(), Event: e, Existing: dst, Requested: to.Name()}
	}
	ec.edges[key] = to.Name()
	return nil
}

// SetInitialState may only be called once, before the first event.
func (ec *ExecutionContext) SetInitialState(s State) error {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()

	if ec.sealed {
		return ErrSealed
	}
	if len(ec.initial) > 0 {
		return ErrInitialStateSet
	}
	if err := ec.register(s); err != nil {
		return err
	}
	ec.initial = s.Name()
	return nil
}

// seal builds the underlying FSM from the edge table.
func (ec *ExecutionContext) seal() error {
	if ec.sealed {
		return nil
	}
	if len(ec.initial) == 0 {
		return ErrNoInitialState
	}

	keys := make([]edgeKey, 0, len(ec.edges))
	for k := range ec.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].state != keys[j].state {
			return keys[i].state < keys[j].state
		}
		return keys[i].event.Compare(keys[j].event) < 0
	})

	events := make(fsm.Events, 0, len(keys))
	for _, k := range keys {
		events = append(events, fsm.EventDesc{
			Name: k.event.String(),
			Src:  []string{k.state},
			Dst:  ec.edges[k],
		})
	}

	ec.Sm = fsm.NewFSM(
		ec.initial,
		events,
		fsm.Callbacks{
			"leave_state": func(_ context.Context, e *fsm.Event) {
				t := sm.Transition{Evt: sm.Event(e.Event), Src: e.Src, Dst: e.Dst}
				if err := ec.states[e.Src].OnExit(t); err != nil {
					e.Cancel(err)
				}
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t := sm.Transition{Evt: sm.Event(e.Event), Src: e.Src, Dst: e.Dst}
				ec.enqueue(ec.states[e.Dst].OnEnter(t))
			},
		},
	)
	ec.sealed = true
	return nil
}

func (ec *ExecutionContext) enqueue(e sm.Event) {
	if !e.IsNone() {
		ec.pending = append(ec.pending, e)
	}
}

// Restore puts the context in a previously persisted state, without running
// any enter or exit handler.
func (ec *ExecutionContext) Restore(stateName string) error {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()

	if _, ok := ec.states[stateName]; !ok {
		return UnknownStateError{Name: stateName}
	}
	if err := ec.seal(); err != nil {
		return err
	}
	ec.Sm.SetState(stateName)
	return nil
}

func (ec *ExecutionContext) currentName() string {
	if ec.Sm != nil {
		return ec.Sm.Current()
	}
	return ec.initial
}

// CurrentStateName is the initial state until the first transition.
func (ec *ExecutionContext) CurrentStateName() string {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()
	return ec.currentName()
}

func (ec *ExecutionContext) CurrentState() State {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()
	return ec.states[ec.currentName()]
}

// Fire dispatches e, then every event requested by the states entered on
// the way. The returned error concerns e itself: UnmappedTransitionError
// when the current state has no edge for it, CanceledTransitionError when
// the state being left refused it.
func (ec *ExecutionContext) Fire(ctx context.Context, e sm.Event) error {
	ec.transitionMutex.Lock()
	executed, err := ec.dispatch(ctx, e)
	ec.transitionMutex.Unlock()

	ec.notify(executed)
	return err
}

// CastEvent is Fire with unmapped events silently ignored.
func (ec *ExecutionContext) CastEvent(e sm.Event) {
	err := ec.Fire(context.Background(), e)
	if err != nil && !IsUnmapped(err) {
		log.WithInterview(ec.interviewId.String(), ec.stageName()).
			WithField("event", e.String()).
			WithError(err).
			Warn("transition failed")
	}
}

// dispatch must be called with transitionMutex held.
func (ec *ExecutionContext) dispatch(ctx context.Context, e sm.Event) ([]sm.Transition, error) {
	if err := ec.seal(); err != nil {
		return nil, err
	}

	ec.executed = nil
	ec.pending = append(ec.pending[:0], e)

	var firstErr error
	for i := 0; len(ec.pending) > 0; i++ {
		next := ec.pending[0]
		ec.pending = ec.pending[1:]

		err := ec.step(ctx, next)
		if i == 0 {
			firstErr = err
		} else if err != nil && !IsUnmapped(err) {
			log.WithInterview(ec.interviewId.String(), ec.stageName()).
				WithField("event", next.String()).
				WithError(err).
				Warn("follow-up transition failed")
		}
	}

	executed := ec.executed
	ec.executed = nil
	return executed, firstErr
}

func (ec *ExecutionContext) step(ctx context.Context, e sm.Event) error {
	current := ec.Sm.Current()
	dst, ok := ec.edges[edgeKey{state: current, event: e}]
	if !ok {
		metrics.TransitionIgnoredCount.WithLabelValues(ec.moduleName(), e.String()).Inc()
		log.WithInterview(ec.interviewId.String(), ec.stageName()).
			WithField("state", current).
			WithField("event", e.String()).
			Debug("no transition for event, ignoring")
		return &UnmappedTransitionError{Stage: ec.stageName(), State: current, Event: e}
	}

	t := sm.Transition{Evt: e, Src: current, Dst: dst}
	if dst == current {
		// the FSM does not run callbacks on self transitions
		if err := ec.states[current].OnExit(t); err != nil {
			metrics.TransitionCanceledCount.WithLabelValues(ec.moduleName(), e.String()).Inc()
			return &CanceledTransitionError{Transition: t, Err: err}
		}
		ec.enqueue(ec.states[dst].OnEnter(t))
	} else if err := ec.Sm.Event(ctx, e.String()); err != nil {
		var canceled fsm.CanceledError
		if errors.As(err, &canceled) {
			metrics.TransitionCanceledCount.WithLabelValues(ec.moduleName(), e.String()).Inc()
			return &CanceledTransitionError{Transition: t, Err: canceled.Err}
		}
		return err
	}

	metrics.TransitionCount.WithLabelValues(ec.moduleName(), e.String()).Inc()
	log.WithInterview(ec.interviewId.String(), ec.stageName()).
		WithField("event", e.String()).
		Debugf("%s -> %s", t.Src, t.Dst)
	ec.executed = append(ec.executed, t)
	return nil
}

func (ec *ExecutionContext) AddTransitionListener(l TransitionListener) {
	ec.listenersMu.Lock()
	defer ec.listenersMu.Unlock()
	ec.listeners = append(ec.listeners, l)
}

func (ec *ExecutionContext) notify(executed []sm.Transition) {
	if len(executed) == 0 {
		return
	}
	ec.listenersMu.RLock()
	listeners := make([]TransitionListener, len(ec.listeners))
	copy(listeners, ec.listeners)
	ec.listenersMu.RUnlock()

	for _, t := range executed {
		for _, l := range listeners {
			l(ec, t)
		}
	}
}

// Perform routes a to the matching handler of the current state, checking
// first that the state offers the action, either to users or to the
// system. COMMENT never causes a transition.
func (ec *ExecutionContext) Perform(ctx context.Context, a *action.Action) error {
	ec.transitionMutex.Lock()

	state := ec.states[ec.currentName()]
	if state == nil {
		ec.transitionMutex.Unlock()
		return ErrNoInitialState
	}
	def, ok := state.ActionDefinition(a.Type)
	if !ok {
		def, ok = state.SystemActionDefinition(a.Type)
	}
	if !ok {
		ec.transitionMutex.Unlock()
		metrics.ActionRejectedCount.WithLabelValues(a.Type.String()).Inc()
		return &ActionNotAllowedError{Stage: ec.stageName(), State: state.Name(), Type: a.Type}
	}
	if err := a.Validate(def); err != nil {
		ec.transitionMutex.Unlock()
		metrics.ActionRejectedCount.WithLabelValues(a.Type.String()).Inc()
		return err
	}

	var next sm.Event
	switch a.Type {
	case action.EXECUTE:
		next = state.Execute(a)
	case action.INTERRUPT:
		next = state.Interrupt(a)
	case action.SKIP:
		next = state.Skip(a)
	case action.STOP:
		next = state.Stop(a)
	case action.COMPLETE:
		next = state.Complete(a)
	}
	metrics.ActionCount.WithLabelValues(a.Type.String()).Inc()

	if next.IsNone() {
		ec.transitionMutex.Unlock()
		return nil
	}
	executed, err := ec.dispatch(ctx, next)
	ec.transitionMutex.Unlock()

	ec.notify(executed)
	return err
}

func (ec *ExecutionContext) ActionDefinitions() action.Definitions {
	if s := ec.CurrentState(); s != nil {
		return s.ActionDefinitions()
	}
	return nil
}

func (ec *ExecutionContext) SystemActionDefinitions() action.Definitions {
	if s := ec.CurrentState(); s != nil {
		return s.SystemActionDefinitions()
	}
	return nil
}

func (ec *ExecutionContext) ActionDefinition(t action.Type) (action.Definition, bool) {
	if s := ec.CurrentState(); s != nil {
		return s.ActionDefinition(t)
	}
	return action.Definition{}, false
}

func (ec *ExecutionContext) SystemActionDefinition(t action.Type) (action.Definition, bool) {
	if s := ec.CurrentState(); s != nil {
		return s.SystemActionDefinition(t)
	}
	return action.Definition{}, false
}

func (ec *ExecutionContext) IsCompleted() bool {
	s := ec.CurrentState()
	return s != nil && s.IsCompleted()
}

func (ec *ExecutionContext) IsFinal() bool {
	s := ec.CurrentState()
	return s != nil && s.IsFinal()
}

func (ec *ExecutionContext) IsInteractive() bool {
	s := ec.CurrentState()
	return s != nil && s.IsInteractive()
}

func (ec *ExecutionContext) Message() string {
	if s := ec.CurrentState(); s != nil {
		return s.Message()
	}
	return ""
}

// Edge is one row of the transition table.
type Edge struct {
	From  string   `json:"from"`
	Event sm.Event `json:"event"`
	To    string   `json:"to"`
}

// Edges lists the transition table ordered by source state then event.
func (ec *ExecutionContext) Edges() []Edge {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()

	out := make([]Edge, 0, len(ec.edges))
	for k, dst := range ec.edges {
		out = append(out, Edge{From: k.state, Event: k.event, To: dst})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Event.Compare(out[j].Event) < 0
	})
	return out
}

// AvailableEvents lists the events the current state has an edge for.
func (ec *ExecutionContext) AvailableEvents() []sm.Event {
	ec.transitionMutex.Lock()
	defer ec.transitionMutex.Unlock()

	current := ec.currentName()
	out := make([]sm.Event, 0)
	for k := range ec.edges {
		if k.state == current {
			out = append(out, k.event)
		}
	}
	sm.Sort(out)
	return out
}
