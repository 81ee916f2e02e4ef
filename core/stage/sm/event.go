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

// Package sm provides the transition events that drive stage state
// machines, along with the record of an executed transition.
package sm

import (
	"sort"
	"strings"
)

// Event is a named transition trigger. Two events are the same event iff
// they have the same name.
type Event string

const (
	NONE      = Event("")
	VALID     = Event("VALID")
	INVALID   = Event("INVALID")
	START     = Event("START")
	CANCEL    = Event("CANCEL")
	COMPLETE  = Event("COMPLETE")
	SKIP      = Event("SKIP")
	INTERRUPT = Event("INTERRUPT")
	RESUME    = Event("RESUME")
)

var wellKnown = []Event{VALID, INVALID, START, CANCEL, COMPLETE, SKIP, INTERRUPT, RESUME}

// NewEvent mints an arbitrary named event.
func NewEvent(name string) Event {
	return Event(name)
}

// WellKnown returns the fixed set of events every module understands.
func WellKnown() []Event {
	out := make([]Event, len(wellKnown))
	copy(out, wellKnown)
	return out
}

func (e Event) String() string {
	return string(e)
}

func (e Event) IsNone() bool {
	return e == NONE
}

func (e Event) Equals(other Event) bool {
	return e == other
}

// Compare orders events lexicographically by name.
func (e Event) Compare(other Event) int {
	return strings.Compare(string(e), string(other))
}

func Sort(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Compare(events[j]) < 0
	})
}

// Transition is an executed edge of a stage state machine.
type Transition struct {
	Evt Event
	Src string
	Dst string
}
