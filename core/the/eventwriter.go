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

// Package the keeps process-wide singletons, such as one event writer
// per topic.
package the

import (
	"sync"

	"github.com/obiba/onyx/common/event"
	"github.com/obiba/onyx/common/event/topic"
	"github.com/obiba/onyx/common/logger"
	"github.com/sirupsen/logrus"
)

var (
	writers = make(map[topic.Topic]event.Writer)
	mu      sync.Mutex
	log     = logger.New(logrus.StandardLogger(), "core")
)

func createOrGetWriter(t topic.Topic) event.Writer {
	mu.Lock()
	defer mu.Unlock()

	if writer, ok := writers[t]; ok {
		return writer
	}

	writers[t] = event.NewWriterWithTopic(t)
	return writers[t]
}

func EventWriter() event.Writer {
	return createOrGetWriter(topic.Event)
}

func EventWriterWithTopic(t topic.Topic) event.Writer {
	return createOrGetWriter(t)
}

func ClearEventWriters() {
	mu.Lock()
	defer mu.Unlock()

	log.Debugf("closing %d event writers", len(writers))
	for _, writer := range writers {
		writer.Close()
	}
	clear(writers)
}
