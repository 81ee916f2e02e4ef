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
	"sync"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/metrics"
	"github.com/obiba/onyx/core/stage"
)

// BuildFunc builds a fresh context, states and edges included.
type BuildFunc func(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error)

// Cache maps interview id, then stage name, to an execution context.
type Cache struct {
	module string
	build  BuildFunc
	mu     sync.RWMutex
	m      map[uid.ID]map[string]*stage.ExecutionContext
}

func NewCache(moduleName string, build BuildFunc) *Cache {
	return &Cache{
		module: moduleName,
		build:  build,
		m:      make(map[uid.ID]map[string]*stage.ExecutionContext),
	}
}

// Get returns the cached context or builds one. A failed build is not
// cached.
func (c *Cache) Get(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error) {
	c.mu.RLock()
	ec, ok := c.m[interviewId][st.Name]
	c.mu.RUnlock()
	if ok {
		return ec, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another request may have built it in the meantime
	byStage, ok := c.m[interviewId]
	if !ok {
		byStage = make(map[string]*stage.ExecutionContext)
		c.m[interviewId] = byStage
	}
	if ec, ok := byStage[st.Name]; ok {
		return ec, nil
	}

	ec, err := c.build(interviewId, st)
	if err != nil {
		if len(byStage) == 0 {
			delete(c.m, interviewId)
		}
		return nil, err
	}
	byStage[st.Name] = ec
	metrics.ContextsBuilt.WithLabelValues(c.module).Inc()
	log.WithInterview(interviewId.String(), st.Name).
		WithField("module", c.module).
		Debug("stage execution context built")
	return ec, nil
}

func (c *Cache) Lookup(interviewId uid.ID, stageName string) (*stage.ExecutionContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ec, ok := c.m[interviewId][stageName]
	return ec, ok
}

// Purge drops the contexts of one interview and returns how many there were.
func (c *Cache) Purge(interviewId uid.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.m[interviewId])
	delete(c.m, interviewId)
	return n
}

func (c *Cache) Interviews() []uid.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uid.ID, 0, len(c.m))
	for id := range c.m {
		out = append(out, id)
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, byStage := range c.m {
		n += len(byStage)
	}
	return n
}
