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

// Package interview drives the stages of participant interviews: it routes
// actions to the execution context of the right module, persists what
// happens and keeps dependent stages in step with the stages they depend on.
package interview

import (
	"context"
	"sync"
	"time"

	"github.com/obiba/onyx/common/event"
	"github.com/obiba/onyx/common/logger"
	"github.com/obiba/onyx/common/utils"
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/eventbus"
	"github.com/obiba/onyx/core/metrics"
	"github.com/obiba/onyx/core/module"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
	"github.com/obiba/onyx/core/store"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "interview")

type Interview = store.Interview

// StageStatus is a snapshot of one stage of an interview.
type StageStatus struct {
	Stage         string             `json:"stage"`
	Module        string             `json:"module"`
	Label         string             `json:"label"`
	DependsOn     string             `json:"dependsOn,omitempty"`
	State         string             `json:"state"`
	Message       string             `json:"message"`
	Completed     bool               `json:"completed"`
	Final         bool               `json:"final"`
	Interactive   bool               `json:"interactive"`
	Actions       action.Definitions `json:"actions"`
	SystemActions action.Definitions `json:"systemActions,omitempty"`
	Events        []sm.Event         `json:"events"`
}

type Manager struct {
	catalogue *stage.Catalogue
	modules   module.Modules
	store     store.Store
	bus       eventbus.Bus

	// serializes interview status changes
	statusMu sync.Mutex

	attachedMu sync.Mutex
	attached   map[*stage.ExecutionContext]struct{}

	propagationMu sync.Mutex
	propagations  map[uid.ID]*propagation
}

// propagation holds the stages of one interview whose dependents still have
// to be re-evaluated. A single caller drains it at a time.
type propagation struct {
	queue []string
}

func NewManager(catalogue *stage.Catalogue, modules module.Modules, st store.Store, bus eventbus.Bus) *Manager {
	return &Manager{
		catalogue: catalogue,
		modules:   modules,
		store:     st,
		bus:       bus,
		attached:  make(map[*stage.ExecutionContext]struct{}),

		propagations: make(map[uid.ID]*propagation),
	}
}

func (m *Manager) Catalogue() *stage.Catalogue {
	return m.catalogue
}

// Start reconciles the open interviews gauge with the store.
func (m *Manager) Start(ctx context.Context) error {
	interviews, err := m.store.ListInterviews(ctx)
	if err != nil {
		return err
	}
	open := 0
	for _, itw := range interviews {
		if itw.Status.IsOpen() {
			open++
		}
	}
	metrics.InterviewsOpen.Set(float64(open))
	log.WithField("open", open).
		WithField("total", len(interviews)).
		Info("interview manager started")
	return nil
}

// Create opens a new interview. A participant may have a single interview
// that is not cancelled.
func (m *Manager) Create(ctx context.Context, participant, user string) (*Interview, error) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	existing, err := m.store.FindInterviews(ctx, participant)
	if err != nil {
		return nil, err
	}
	for _, itw := range existing {
		if itw.Status != store.CANCELLED {
			return nil, ParticipantHasInterviewError{Participant: participant, Id: itw.Id}
		}
	}

	itw := &Interview{
		Id:          uid.New(),
		Participant: participant,
		User:        user,
		Status:      store.IN_PROGRESS,
		StartedAt:   time.Now(),
	}
	if err := m.store.CreateInterview(ctx, itw); err != nil {
		return nil, err
	}
	metrics.InterviewsOpen.Inc()
	m.publishInterview(itw)
	log.WithInterview(itw.Id.String(), "").
		WithField("participant", participant).
		Info("interview started")
	return itw, nil
}

func (m *Manager) Get(ctx context.Context, id uid.ID) (*Interview, error) {
	return m.store.GetInterview(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]*Interview, error) {
	return m.store.ListInterviews(ctx)
}

// StageExecution returns the execution context of a stage, restored from
// its memento the first time it is requested.
func (m *Manager) StageExecution(ctx context.Context, interviewId uid.ID, stageName string) (*stage.ExecutionContext, error) {
	itw, err := m.store.GetInterview(ctx, interviewId)
	if err != nil {
		return nil, err
	}
	return m.stageExecution(ctx, itw, stageName)
}

func (m *Manager) stageExecution(ctx context.Context, itw *Interview, stageName string) (*stage.ExecutionContext, error) {
	st, err := m.catalogue.Stage(stageName)
	if err != nil {
		return nil, err
	}
	mod, err := m.modules.ForStage(st)
	if err != nil {
		return nil, err
	}
	ec, err := mod.StageExecution(itw.Id, st)
	if err != nil {
		return nil, err
	}
	m.attach(ctx, itw, ec)
	return ec, nil
}

// attach runs once per context: it restores the persisted state, or else
// checks the dependency condition, and starts listening to transitions.
func (m *Manager) attach(ctx context.Context, itw *Interview, ec *stage.ExecutionContext) {
	m.attachedMu.Lock()
	if _, ok := m.attached[ec]; ok {
		m.attachedMu.Unlock()
		return
	}
	m.attached[ec] = struct{}{}
	m.attachedMu.Unlock()

	st := ec.Stage()
	entry := log.WithInterview(itw.Id.String(), st.Name)

	memento, found, err := m.store.LoadMemento(ctx, itw.Id, st.Name)
	if err != nil {
		entry.WithError(err).Warn("cannot load stage memento")
	}
	if found {
		if err := ec.Restore(memento.State); err != nil {
			entry.WithError(err).
				WithField("state", memento.State).
				Warn("cannot restore stage state")
		}
	}

	ec.AddTransitionListener(func(ec *stage.ExecutionContext, t sm.Transition) {
		m.onTransition(itw.Id, ec, t)
	})

	if !found && itw.Status.IsOpen() && st.HasDependency() {
		m.evaluate(ctx, itw, ec)
	}
}

// evaluate casts VALID or INVALID on ec according to its dependency
// condition. States that have no edge for the event ignore it.
func (m *Manager) evaluate(ctx context.Context, itw *Interview, ec *stage.ExecutionContext) {
	st := ec.Stage()
	satisfied, err := st.IsSatisfied(&view{ctx: ctx, manager: m, itw: itw})
	if err != nil {
		log.WithInterview(itw.Id.String(), st.Name).
			WithError(err).
			Warn("cannot evaluate dependency condition")
		return
	}
	if satisfied {
		ec.CastEvent(sm.VALID)
	} else {
		ec.CastEvent(sm.INVALID)
	}
}

func (m *Manager) onTransition(interviewId uid.ID, ec *stage.ExecutionContext, t sm.Transition) {
	ctx := context.Background()
	st := ec.Stage()

	err := m.store.SaveMemento(ctx, store.Memento{
		InterviewId: interviewId,
		Stage:       st.Name,
		State:       t.Dst,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		log.WithInterview(interviewId.String(), st.Name).
			WithError(err).
			Error("cannot save stage memento")
	}

	m.bus.Publish(event.NewStageTransitionEvent(interviewId, st.Name, st.Module, t.Evt.String(), t.Src, t.Dst))

	itw, err := m.store.GetInterview(ctx, interviewId)
	if err != nil {
		log.WithInterview(interviewId.String(), st.Name).
			WithError(err).
			Error("transition on unknown interview")
		return
	}
	if !itw.Status.IsOpen() {
		return
	}
	m.propagate(ctx, itw, st.Name)
}

// propagate re-evaluates the stages that depend on changed, then the
// interview status. Transitions caused along the way only queue their own
// stage; the first caller for an interview drains the queue, so evaluation
// is iterative. The number of evaluations is bounded in case conditions
// never settle.
func (m *Manager) propagate(ctx context.Context, itw *Interview, changed string) {
	m.propagationMu.Lock()
	p, draining := m.propagations[itw.Id]
	if !draining {
		p = &propagation{}
		m.propagations[itw.Id] = p
	}
	p.queue = append(p.queue, changed)
	m.propagationMu.Unlock()
	if draining {
		return
	}

	n := len(m.catalogue.Stages)
	budget := 2*n*n + 16
	exhausted := false
	for {
		m.propagationMu.Lock()
		if exhausted {
			p.queue = p.queue[:0]
		}
		if len(p.queue) == 0 {
			m.propagationMu.Unlock()
			m.updateCompletion(ctx, itw.Id)

			m.propagationMu.Lock()
			if len(p.queue) == 0 || exhausted {
				delete(m.propagations, itw.Id)
				m.propagationMu.Unlock()
				return
			}
		}
		name := p.queue[0]
		p.queue = p.queue[1:]
		m.propagationMu.Unlock()

		for _, dependent := range m.catalogue.Dependents(name) {
			if budget == 0 {
				log.WithInterview(itw.Id.String(), name).
					Warn("dependency conditions do not settle, giving up re-evaluation")
				exhausted = true
				break
			}
			budget--
			dec, err := m.stageExecution(ctx, itw, dependent.Name)
			if err != nil {
				log.WithInterview(itw.Id.String(), dependent.Name).
					WithError(err).
					Warn("cannot reach dependent stage")
				continue
			}
			m.evaluate(ctx, itw, dec)
		}
	}
}

// updateCompletion moves the interview between IN_PROGRESS and COMPLETED
// depending on whether every stage is final.
func (m *Manager) updateCompletion(ctx context.Context, interviewId uid.ID) {
	itw, err := m.store.GetInterview(ctx, interviewId)
	if err != nil || !itw.Status.IsOpen() {
		return
	}

	// building a context may itself cause transitions, so this runs
	// before taking statusMu
	allFinal := true
	for _, name := range m.catalogue.Names() {
		ec, err := m.stageExecution(ctx, itw, name)
		if err != nil || !ec.IsFinal() {
			allFinal = false
			break
		}
	}
	next := store.IN_PROGRESS
	if allFinal {
		next = store.COMPLETED
	}

	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	itw, err = m.store.GetInterview(ctx, interviewId)
	if err != nil || !itw.Status.IsOpen() || itw.Status == next {
		return
	}
	itw.Status = next
	if err := m.store.UpdateInterview(ctx, itw); err != nil {
		log.WithInterview(interviewId.String(), "").
			WithError(err).
			Error("cannot update interview status")
		return
	}
	m.publishInterview(itw)
	log.WithInterview(interviewId.String(), "").
		WithField("status", next).
		Info("interview status changed")
}

// DoAction performs a on the stage and records it when it succeeds.
func (m *Manager) DoAction(ctx context.Context, interviewId uid.ID, stageName string, a *action.Action) error {
	defer utils.TimeTrack(time.Now(), "DoAction", log.WithInterview(interviewId.String(), stageName))

	itw, err := m.store.GetInterview(ctx, interviewId)
	if err != nil {
		return err
	}
	if !itw.Status.IsOpen() {
		return InterviewNotOpenError{Id: itw.Id, Status: itw.Status}
	}
	ec, err := m.stageExecution(ctx, itw, stageName)
	if err != nil {
		return err
	}

	a.InterviewId = interviewId
	a.Stage = stageName
	if a.Id.IsNil() {
		a.Id = uid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	err = ec.Perform(ctx, a)
	m.bus.Publish(event.NewActionEvent(interviewId, a.Id, stageName, a.Type.String(), a.User, ec.CurrentStateName(), err))
	entry := log.WithInterview(interviewId.String(), stageName).
		WithField("action", a.Type.String()).
		WithField("user", a.User)
	if err != nil {
		entry.WithError(err).Debug("action rejected")
		return err
	}
	entry.Debug("action performed")
	return m.store.AppendAction(ctx, a)
}

func (m *Manager) Actions(ctx context.Context, interviewId uid.ID) ([]*action.Action, error) {
	if _, err := m.store.GetInterview(ctx, interviewId); err != nil {
		return nil, err
	}
	return m.store.ListActions(ctx, interviewId)
}

// StageStatuses lists the stages whose name matches pattern, all of them
// when it is empty, in catalogue order.
func (m *Manager) StageStatuses(ctx context.Context, interviewId uid.ID, pattern string) ([]StageStatus, error) {
	itw, err := m.store.GetInterview(ctx, interviewId)
	if err != nil {
		return nil, err
	}
	stages, err := m.catalogue.Filtered(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]StageStatus, 0, len(stages))
	for _, st := range stages {
		status, err := m.stageStatus(ctx, itw, st)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

func (m *Manager) StageStatus(ctx context.Context, interviewId uid.ID, stageName string) (StageStatus, error) {
	itw, err := m.store.GetInterview(ctx, interviewId)
	if err != nil {
		return StageStatus{}, err
	}
	st, err := m.catalogue.Stage(stageName)
	if err != nil {
		return StageStatus{}, err
	}
	return m.stageStatus(ctx, itw, st)
}

func (m *Manager) stageStatus(ctx context.Context, itw *Interview, st *stage.Stage) (StageStatus, error) {
	ec, err := m.stageExecution(ctx, itw, st.Name)
	if err != nil {
		return StageStatus{}, err
	}
	status := StageStatus{
		Stage:       st.Name,
		Module:      st.Module,
		Label:       st.DisplayLabel(),
		DependsOn:   st.DependsOn,
		State:       ec.CurrentStateName(),
		Message:     ec.Message(),
		Completed:   ec.IsCompleted(),
		Final:       ec.IsFinal(),
		Interactive: ec.IsInteractive(),
		Events:      ec.AvailableEvents(),
	}
	if itw.Status.IsOpen() {
		status.Actions = ec.ActionDefinitions()
		status.SystemActions = ec.SystemActionDefinitions()
	}
	return status, nil
}

func (m *Manager) Close(ctx context.Context, id uid.ID) (*Interview, error) {
	return m.end(ctx, id, store.CLOSED)
}

func (m *Manager) Cancel(ctx context.Context, id uid.ID) (*Interview, error) {
	return m.end(ctx, id, store.CANCELLED)
}

func (m *Manager) end(ctx context.Context, id uid.ID, status store.InterviewStatus) (*Interview, error) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	itw, err := m.store.GetInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if !itw.Status.IsOpen() {
		return nil, InterviewNotOpenError{Id: id, Status: itw.Status}
	}
	itw.Status = status
	itw.EndedAt = time.Now()
	if err := m.store.UpdateInterview(ctx, itw); err != nil {
		return nil, err
	}

	m.forget(id)
	metrics.InterviewsOpen.Dec()
	m.publishInterview(itw)
	log.WithInterview(id.String(), "").
		WithField("status", status).
		Info("interview ended")
	return itw, nil
}

// Delete removes an ended interview and everything recorded about it.
func (m *Manager) Delete(ctx context.Context, id uid.ID) error {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	itw, err := m.store.GetInterview(ctx, id)
	if err != nil {
		return err
	}
	if itw.Status.IsOpen() {
		return ErrInterviewOpen
	}
	m.forget(id)
	return m.store.DeleteInterview(ctx, id)
}

// forget drops the cached contexts of the interview in every module.
func (m *Manager) forget(id uid.ID) {
	m.modules.ForgetAll(id)

	m.attachedMu.Lock()
	defer m.attachedMu.Unlock()
	for ec := range m.attached {
		if ec.InterviewId() == id {
			delete(m.attached, ec)
		}
	}
}

func (m *Manager) publishInterview(itw *Interview) {
	m.bus.Publish(event.NewInterviewEvent(itw.Id, itw.Participant, itw.User, string(itw.Status)))
}

// view exposes the stages of one interview to dependency conditions.
type view struct {
	ctx     context.Context
	manager *Manager
	itw     *Interview
}

func (v *view) context(name string) *stage.ExecutionContext {
	ec, err := v.manager.stageExecution(v.ctx, v.itw, name)
	if err != nil {
		return nil
	}
	return ec
}

func (v *view) IsCompleted(name string) bool {
	ec := v.context(name)
	return ec != nil && ec.IsCompleted()
}

func (v *view) IsFinal(name string) bool {
	ec := v.context(name)
	return ec != nil && ec.IsFinal()
}

func (v *view) StateOf(name string) string {
	if ec := v.context(name); ec != nil {
		return ec.CurrentStateName()
	}
	return ""
}
