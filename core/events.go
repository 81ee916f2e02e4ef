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
	"github.com/obiba/onyx/common/event"
	"github.com/obiba/onyx/common/event/topic"
	"github.com/obiba/onyx/core/eventbus"
	"github.com/obiba/onyx/core/the"
)

func topicOf(e event.Event) (topic.Topic, bool) {
	switch e.(type) {
	case *event.InterviewEvent:
		return topic.Ev_Interview, true
	case *event.StageTransitionEvent:
		return topic.Ev_Stage_Transition, true
	case *event.ActionEvent:
		return topic.Ev_Stage_Action, true
	}
	return "", false
}

// forwardEvents relays what the interview manager publishes on the bus to
// the event writers, off the caller's goroutine.
func forwardEvents(bus eventbus.Subscriber) eventbus.Subscription {
	return bus.SubscribeAsync(func(e event.Event) {
		t, ok := topicOf(e)
		if !ok {
			log.WithField("event", e.GetName()).Debug("no topic for event, dropped")
			return
		}
		the.EventWriterWithTopic(t).WriteEvent(e)
	})
}
