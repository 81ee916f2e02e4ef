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

	"github.com/obiba/onyx/common/event/topic"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

// Reader provides a blocking, cancellable API to fetch events.
type Reader interface {
	// Next returns the next event, or fails when ctx is cancelled.
	Next(ctx context.Context) (*Envelope, error)
	Close() error
}

// DummyReader is an implementation of Reader that returns no events.
type DummyReader struct{}

func (*DummyReader) Next(context.Context) (*Envelope, error) { return nil, nil }
func (*DummyReader) Close() error                            { return nil }

type KafkaReader struct {
	*kafka.Reader
	topic string
}

// NewReaderWithTopic reads t from the configured brokers. An empty groupID
// reads from the latest offset without committing.
func NewReaderWithTopic(t topic.Topic, groupID string) Reader {
	brokers := viper.GetStringSlice("kafkaEndpoints")
	if len(brokers) == 0 {
		return &DummyReader{}
	}
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    string(t),
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	r := &KafkaReader{
		Reader: kafka.NewReader(cfg),
		topic:  string(t),
	}
	if len(groupID) == 0 {
		if err := r.SetOffset(kafka.LastOffset); err != nil {
			log.WithError(err).
				WithField("topic", r.topic).
				Warn("cannot seek to the latest event, reading from the start")
		}
	}
	return r
}

func (r *KafkaReader) Next(ctx context.Context) (*Envelope, error) {
	if r == nil {
		return nil, fmt.Errorf("nil reader")
	}
	msg, err := r.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return kafkaMessageToEnvelope(msg)
}

func (r *KafkaReader) Close() error {
	if r == nil {
		return nil
	}
	return r.Reader.Close()
}

func kafkaMessageToEnvelope(m kafka.Message) (*Envelope, error) {
	env, err := Unmarshal(m.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal kafka message: %w", err)
	}
	return env, nil
}
