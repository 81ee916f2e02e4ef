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

// Package eventbus dispatches notifications between components of the same
// process, e.g. stage transitions to the interview manager and the HTTP
// watchers.
package eventbus

import (
	"fmt"
	"sort"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/obiba/onyx/common/event"
	"github.com/obiba/onyx/common/logger"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "eventbus")

var (
	once     sync.Once
	instance Bus
)

type Handler func(e event.Event)

type Publisher interface {
	Publish(e event.Event)
}

type Subscriber interface {
	// Subscribe runs h in the publishing goroutine. h must not publish on
	// the same bus.
	Subscribe(h Handler) Subscription
	// SubscribeAsync runs h in a goroutine of its own, one event at a time
	// and in publishing order.
	SubscribeAsync(h Handler) Subscription
}

type Bus interface {
	Publisher
	Subscriber
	Close()
}

type Subscription interface {
	// Unsubscribe waits for asynchronous deliveries in flight, so it must
	// not be called from a handler.
	Unsubscribe()
}

func Instance() Bus {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// LocalBus gives every subscription a topic of its own on the underlying
// bus, so handlers built from the same closure stay distinguishable and
// delivery follows subscription order.
type LocalBus struct {
	bus evbus.Bus

	mu     sync.RWMutex
	nextId int
	topics map[int]string
	fns    map[int]func(event.Event)
	closed bool
}

func New() *LocalBus {
	return &LocalBus{
		bus:    evbus.New(),
		topics: make(map[int]string),
		fns:    make(map[int]func(event.Event)),
	}
}

func (b *LocalBus) Publish(e event.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	ids := make([]int, 0, len(b.topics))
	for id := range b.topics {
		ids = append(ids, id)
	}
	topics := make([]string, len(ids))
	sort.Ints(ids)
	for i, id := range ids {
		topics[i] = b.topics[id]
	}
	b.mu.RUnlock()

	for _, t := range topics {
		b.bus.Publish(t, e)
	}
}

func (b *LocalBus) add(h Handler, async bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextId
	b.nextId++
	sub := &subscription{bus: b, id: id}
	if b.closed {
		return sub
	}

	topic := fmt.Sprintf("subscriber.%d", id)
	fn := func(e event.Event) { h(e) }
	var err error
	if async {
		// transactional: one delivery at a time, in publishing order
		err = b.bus.SubscribeAsync(topic, fn, true)
	} else {
		err = b.bus.Subscribe(topic, fn)
	}
	if err != nil {
		log.WithError(err).
			WithField("topic", topic).
			Error("cannot subscribe")
		return sub
	}
	b.topics[id] = topic
	b.fns[id] = fn
	return sub
}

func (b *LocalBus) Subscribe(h Handler) Subscription {
	return b.add(h, false)
}

func (b *LocalBus) SubscribeAsync(h Handler) Subscription {
	return b.add(h, true)
}

func (b *LocalBus) remove(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	topic, ok := b.topics[id]
	if !ok {
		return false
	}
	if err := b.bus.Unsubscribe(topic, b.fns[id]); err != nil {
		log.WithError(err).
			WithField("topic", topic).
			Warn("cannot unsubscribe")
	}
	delete(b.topics, id)
	delete(b.fns, id)
	return true
}

// Close waits for asynchronous subscribers to handle what was published,
// then drops every subscription.
func (b *LocalBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	n := len(b.topics)
	b.mu.Unlock()

	b.bus.WaitAsync()

	b.mu.Lock()
	for id, topic := range b.topics {
		_ = b.bus.Unsubscribe(topic, b.fns[id])
	}
	b.topics = make(map[int]string)
	b.fns = make(map[int]func(event.Event))
	b.mu.Unlock()
	log.Debugf("event bus closed, %d subscribers released", n)
}

type subscription struct {
	bus  *LocalBus
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.bus.remove(s.id) {
			s.bus.bus.WaitAsync()
		}
	})
}
