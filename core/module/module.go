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

// Package module defines the pluggable providers of stage behaviour, one per
// instrument family, and the registry they are loaded from.
package module

import (
	"fmt"
	"sort"
	"sync"

	"github.com/obiba/onyx/common/logger"
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/stage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), "module")

// Module builds and caches the execution contexts of the stages it owns.
type Module interface {
	Name() string

	Initialize() error
	Shutdown() error

	// StageExecution returns the context of st for the interview, building
	// it the first time the pair is requested.
	StageExecution(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error)
	// Forget drops every cached context of the interview.
	Forget(interviewId uid.ID)
}

type NewFunc func() Module

type Modules map[string]Module

var (
	loaderMu      sync.RWMutex
	moduleLoaders = make(map[string]NewFunc)
)

func RegisterModule(name string, newFunc NewFunc) {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	moduleLoaders[name] = newFunc
}

func RegisteredModules() []string {
	loaderMu.RLock()
	defer loaderMu.RUnlock()
	out := make([]string, 0, len(moduleLoaders))
	for name := range moduleLoaders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset clears the registry.
func Reset() {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	moduleLoaders = make(map[string]NewFunc)
}

// Load instantiates and initializes the named modules. With no names, the
// viper key "modules" is used, and failing that every registered module.
func Load(names ...string) (Modules, error) {
	if len(names) == 0 {
		names = viper.GetStringSlice("modules")
	}
	if len(names) == 0 {
		names = RegisteredModules()
	}

	loaderMu.RLock()
	defer loaderMu.RUnlock()

	out := make(Modules, len(names))
	for _, name := range names {
		newFunc, ok := moduleLoaders[name]
		if !ok {
			return nil, fmt.Errorf("requested module %s unavailable", name)
		}
		m := newFunc()
		if err := m.Initialize(); err != nil {
			return nil, fmt.Errorf("module %s failed to initialize: %w", name, err)
		}
		log.WithField("module", name).Debug("module initialized")
		out[name] = m
	}
	return out, nil
}

func (ms Modules) Names() []string {
	out := make([]string, 0, len(ms))
	for name := range ms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (ms Modules) ForStage(st *stage.Stage) (Module, error) {
	m, ok := ms[st.Module]
	if !ok {
		return nil, fmt.Errorf("stage %s: module %s not loaded", st.Name, st.Module)
	}
	return m, nil
}

func (ms Modules) ForgetAll(interviewId uid.ID) {
	for _, m := range ms {
		m.Forget(interviewId)
	}
}

func (ms Modules) ShutdownAll() {
	for name, m := range ms {
		if err := m.Shutdown(); err != nil {
			log.WithError(err).
				WithField("module", name).
				Error("module failed to shut down")
		}
	}
}
