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

package module

import (
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/sm"
)

// Base implements Module on top of a Cache. Concrete modules only supply
// the BuildFunc.
type Base struct {
	name  string
	cache *Cache
}

func NewBase(name string, build BuildFunc) *Base {
	return &Base{
		name:  name,
		cache: NewCache(name, build),
	}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Initialize() error {
	return nil
}

func (b *Base) Shutdown() error {
	for _, id := range b.cache.Interviews() {
		b.cache.Purge(id)
	}
	return nil
}

func (b *Base) StageExecution(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error) {
	return b.cache.Get(interviewId, st)
}

func (b *Base) Forget(interviewId uid.ID) {
	if n := b.cache.Purge(interviewId); n > 0 {
		log.WithInterview(interviewId.String(), "").
			WithField("module", b.name).
			Debugf("dropped %d stage execution contexts", n)
	}
}

func (b *Base) Cache() *Cache {
	return b.cache
}

// Graph is the usual way a BuildFunc wires its states: edges first, then
// the initial state. It stops at the first error.
type Graph struct {
	ec  *stage.ExecutionContext
	err error
}

func NewGraph(ec *stage.ExecutionContext) *Graph {
	return &Graph{ec: ec}
}

func (g *Graph) Edge(from stage.State, e sm.Event, to stage.State) *Graph {
	if g.err != nil {
		return g
	}
	g.err = g.ec.AddEdge(from, e, to)
	return g
}

func (g *Graph) Initial(s stage.State) *Graph {
	if g.err != nil {
		return g
	}
	g.err = g.ec.SetInitialState(s)
	return g
}

func (g *Graph) Build() (*stage.ExecutionContext, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.ec, nil
}
