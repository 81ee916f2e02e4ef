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
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obiba/onyx/core/the"
)

const shutdownTimeout = 5 * time.Second

func signals(state *globalState, svr interface{ Shutdown(context.Context) error }) {

	// Create channel to receive unix signals
	signal_chan := make(chan os.Signal, 1)

	//Register channel to receive SIGINT and SIGTERM signals
	signal.Notify(signal_chan,
		syscall.SIGINT,
		syscall.SIGTERM)

	// Goroutine executes a blocking receive for signals
	go func() {
		s := <-signal_chan
		manageKillSignals(state, svr)

		switch s {
		case syscall.SIGINT:
			os.Exit(130) // 128+2
		case syscall.SIGTERM:
			os.Exit(143) // 128+15
		}
	}()
}

// manageKillSignals stops accepting requests, then flushes and closes what
// the core holds. Execution contexts are not persisted here, their mementos
// are saved on every transition.
func manageKillSignals(state *globalState, svr interface{ Shutdown(context.Context) error }) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		log.WithPrefix("termination").WithError(err).Error("cannot shut down HTTP server")
	}
	state.shutdown()
	state.close()
	the.ClearEventWriters()
}
