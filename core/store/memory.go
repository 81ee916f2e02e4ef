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

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/stage/action"
)

type mementoKey struct {
	interviewId uid.ID
	stage       string
}

// MemoryStore keeps everything in maps; nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	interviews map[uid.ID]Interview
	order      []uid.ID
	actions    map[uid.ID][]action.Action
	mementos   map[mementoKey]Memento
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		interviews: make(map[uid.ID]Interview),
		actions:    make(map[uid.ID][]action.Action),
		mementos:   make(map[mementoKey]Memento),
	}
}

func (s *MemoryStore) CreateInterview(_ context.Context, itw *Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[itw.Id] = *itw
	s.order = append(s.order, itw.Id)
	return nil
}

func (s *MemoryStore) UpdateInterview(_ context.Context, itw *Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.interviews[itw.Id]; !ok {
		return InterviewNotFoundError{Id: itw.Id}
	}
	s.interviews[itw.Id] = *itw
	return nil
}

func (s *MemoryStore) GetInterview(_ context.Context, id uid.ID) (*Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	itw, ok := s.interviews[id]
	if !ok {
		return nil, InterviewNotFoundError{Id: id}
	}
	return &itw, nil
}

func (s *MemoryStore) FindInterviews(_ context.Context, participant string) ([]*Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Interview, 0)
	for _, id := range s.order {
		if itw := s.interviews[id]; itw.Participant == participant {
			out = append(out, &itw)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListInterviews(context.Context) ([]*Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Interview, 0, len(s.order))
	for _, id := range s.order {
		itw := s.interviews[id]
		out = append(out, &itw)
	}
	return out, nil
}

func (s *MemoryStore) DeleteInterview(_ context.Context, id uid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.interviews[id]; !ok {
		return InterviewNotFoundError{Id: id}
	}
	delete(s.interviews, id)
	delete(s.actions, id)
	for k := range s.mementos {
		if k.interviewId == id {
			delete(s.mementos, k)
		}
	}
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) AppendAction(_ context.Context, a *action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.interviews[a.InterviewId]; !ok {
		return InterviewNotFoundError{Id: a.InterviewId}
	}
	s.actions[a.InterviewId] = append(s.actions[a.InterviewId], *a)
	return nil
}

func (s *MemoryStore) ListActions(_ context.Context, interviewId uid.ID) ([]*action.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*action.Action, 0, len(s.actions[interviewId]))
	for i := range s.actions[interviewId] {
		a := s.actions[interviewId][i]
		out = append(out, &a)
	}
	return out, nil
}

func (s *MemoryStore) SaveMemento(_ context.Context, m Memento) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mementos[mementoKey{interviewId: m.InterviewId, stage: m.Stage}] = m
	return nil
}

func (s *MemoryStore) LoadMemento(_ context.Context, interviewId uid.ID, stage string) (Memento, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mementos[mementoKey{interviewId: interviewId, stage: stage}]
	return m, ok, nil
}

func (s *MemoryStore) ListMementos(_ context.Context, interviewId uid.ID) ([]Memento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Memento, 0)
	for k, m := range s.mementos {
		if k.interviewId == interviewId {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
