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

package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/obiba/onyx/common/event/topic"
	"github.com/obiba/onyx/common/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), "event")

const batchSize = 100

type Writer interface {
	WriteEvent(e Event)
	WriteEventWithTimestamp(e Event, timestamp time.Time)
	Close()
}

// DummyWriter is used when no Kafka endpoint is configured.
type DummyWriter struct{}

func (*DummyWriter) WriteEvent(Event)                         {}
func (*DummyWriter) WriteEventWithTimestamp(Event, time.Time) {}
func (*DummyWriter) Close()                                   {}

// KafkaWriter queues events and writes them to Kafka in batches from a
// background goroutine, so WriteEvent never waits on the broker.
type KafkaWriter struct {
	*kafka.Writer
	toBatchMessagesChan chan kafka.Message
	messageBuffer       *FifoBuffer[kafka.Message]
	runningWorkers      sync.WaitGroup
	batchingLoopDoneCh  chan struct{}
	writeFunction       func([]kafka.Message)

	closeMu sync.RWMutex
	closed  bool
}

func NewWriterWithTopic(t topic.Topic) Writer {
	endpoints := viper.GetStringSlice("kafkaEndpoints")
	if len(endpoints) == 0 {
		return &DummyWriter{}
	}
	return newKafkaWriter(&kafka.Writer{
		Addr:                   kafka.TCP(endpoints...),
		Topic:                  string(t),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}, nil)
}

func newKafkaWriter(kw *kafka.Writer, write func([]kafka.Message)) *KafkaWriter {
	w := &KafkaWriter{
		Writer:              kw,
		toBatchMessagesChan: make(chan kafka.Message, 1000),
		messageBuffer:       NewFifoBuffer[kafka.Message](),
		batchingLoopDoneCh:  make(chan struct{}),
	}
	w.writeFunction = write
	if w.writeFunction == nil {
		w.writeFunction = w.writeMessages
	}

	w.runningWorkers.Add(2)
	go w.batchingLoop()
	go w.writingLoop()
	return w
}

func (w *KafkaWriter) batchingLoop() {
	defer w.runningWorkers.Done()
	for message := range w.toBatchMessagesChan {
		w.messageBuffer.Push(message)
	}
	close(w.batchingLoopDoneCh)
}

func (w *KafkaWriter) writingLoop() {
	defer w.runningWorkers.Done()
	for {
		messages := w.messageBuffer.PopMultiple(batchSize)
		if len(messages) == 0 {
			return
		}
		w.writeFunction(messages)
	}
}

func (w *KafkaWriter) writeMessages(messages []kafka.Message) {
	err := w.WriteMessages(context.Background(), messages...)
	if err != nil {
		log.WithError(err).
			WithField("topic", w.Topic).
			WithField("count", len(messages)).
			Error("failed to write events to kafka")
	}
}

func (w *KafkaWriter) WriteEvent(e Event) {
	w.WriteEventWithTimestamp(e, time.Now())
}

func (w *KafkaWriter) WriteEventWithTimestamp(e Event, timestamp time.Time) {
	message, err := toKafkaMessage(e, timestamp)
	if err != nil {
		log.WithField("event", e.GetName()).
			WithError(err).
			Error("cannot encode event")
		return
	}

	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		log.WithField("event", e.GetName()).
			Warn("event dropped, writer is closed")
		return
	}
	w.toBatchMessagesChan <- message
}

// Close flushes the queued events and closes the Kafka writer.
func (w *KafkaWriter) Close() {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return
	}
	w.closed = true
	close(w.toBatchMessagesChan)
	w.closeMu.Unlock()

	<-w.batchingLoopDoneCh
	w.messageBuffer.Release()
	w.runningWorkers.Wait()

	if err := w.Writer.Close(); err != nil {
		log.WithError(err).
			WithField("topic", w.Topic).
			Warn("error closing kafka writer")
	}
}

func toKafkaMessage(e Event, timestamp time.Time) (kafka.Message, error) {
	env, err := Wrap(e, timestamp)
	if err != nil {
		return kafka.Message{}, err
	}
	data, err := env.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.GetInterviewId().String()),
		Value: data,
		Time:  timestamp,
	}, nil
}
