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

package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/k0kubun/pp"
	"github.com/obiba/onyx/core/eventbus"
	"github.com/obiba/onyx/core/interview"
	"github.com/obiba/onyx/core/module"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/store"
	"github.com/spf13/viper"
)

func newGlobalState(ctx context.Context, shutdown func()) (*globalState, error) {
	catalogue, err := stage.LoadCatalogue(viper.GetString("catalogue"))
	if err != nil {
		return nil, fmt.Errorf("cannot load stage catalogue: %w", err)
	}

	modules, err := module.Load(viper.GetStringSlice("modules")...)
	if err != nil {
		return nil, err
	}
	if err = catalogue.Validate(modules.Names()); err != nil {
		modules.ShutdownAll()
		return nil, err
	}
	if viper.GetBool("veryVerbose") {
		log.WithField("stages", pp.Sprint(catalogue.Stages)).
			WithField("modules", modules.Names()).
			Trace("catalogue loaded")
	}

	st, err := store.New(viper.GetString("store"), viper.GetString("storePath"))
	if err != nil {
		modules.ShutdownAll()
		return nil, err
	}

	bus := eventbus.New()
	state := &globalState{
		shutdown: shutdown,
		modules:  modules,
		store:    st,
		bus:      bus,
		manager:  interview.NewManager(catalogue, modules, st, bus),
	}
	state.forwarding = forwardEvents(bus)

	if err = state.manager.Start(ctx); err != nil {
		state.close()
		return nil, err
	}
	return state, nil
}

type globalState struct {
	shutdown  func()
	closeOnce sync.Once

	modules    module.Modules
	store      store.Store
	bus        *eventbus.LocalBus
	forwarding eventbus.Subscription

	// uses locks, so thread safe
	manager *interview.Manager
}

// close releases everything newGlobalState acquired. It may be called both
// from the signal handler and at the end of Run.
func (state *globalState) close() {
	state.closeOnce.Do(func() {
		state.modules.ShutdownAll()
		state.forwarding.Unsubscribe()
		state.bus.Close()
		if err := state.store.Close(); err != nil {
			log.WithError(err).Error("cannot close store")
		}
	})
}
