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

// Package store persists interviews, the log of performed actions and the
// last known state of every stage execution.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/obiba/onyx/common/logger"
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/metrics"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "store")

type InterviewStatus string

const (
	IN_PROGRESS InterviewStatus = "IN_PROGRESS"
	COMPLETED   InterviewStatus = "COMPLETED"
	CANCELLED   InterviewStatus = "CANCELLED"
	CLOSED      InterviewStatus = "CLOSED"
)

// IsOpen tells whether stages of the interview may still change.
func (s InterviewStatus) IsOpen() bool {
	return s == IN_PROGRESS || s == COMPLETED
}

type Interview struct {
	Id          uid.ID          `json:"id"`
	Participant string          `json:"participant"`
	User        string          `json:"user"`
	Status      InterviewStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	EndedAt     time.Time       `json:"endedAt,omitempty"`
}

// Memento is the persisted state of one stage execution context.
type Memento struct {
	InterviewId uid.ID    `json:"interviewId"`
	Stage       string    `json:"stage"`
	State       string    `json:"state"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type InterviewNotFoundError struct {
	Id uid.ID
}

func (e InterviewNotFoundError) Error() string {
	return fmt.Sprintf("interview %s not found", e.Id)
}

type Store interface {
	CreateInterview(ctx context.Context, itw *Interview) error
	UpdateInterview(ctx context.Context, itw *Interview) error
	GetInterview(ctx context.Context, id uid.ID) (*Interview, error)
	// FindInterviews returns the interviews of a participant, oldest first.
	FindInterviews(ctx context.Context, participant string) ([]*Interview, error)
	ListInterviews(ctx context.Context) ([]*Interview, error)
	// DeleteInterview removes the interview with its actions and mementos.
	DeleteInterview(ctx context.Context, id uid.ID) error

	AppendAction(ctx context.Context, a *action.Action) error
	ListActions(ctx context.Context, interviewId uid.ID) ([]*action.Action, error)

	SaveMemento(ctx context.Context, m Memento) error
	LoadMemento(ctx context.Context, interviewId uid.ID, stage string) (Memento, bool, error)
	ListMementos(ctx context.Context, interviewId uid.ID) ([]Memento, error)

	Close() error
}

const (
	KIND_MEMORY = "memory"
	KIND_SQLITE = "sqlite"
)

// New opens the store of the given kind; path is only used by sqlite.
func New(kind string, path string) (Store, error) {
	switch kind {
	case KIND_MEMORY:
		log.Debug("using in-memory store")
		return NewMemoryStore(), nil
	case KIND_SQLITE, "":
		log.WithField("path", path).Debug("using sqlite store")
		return NewSQLiteStore(path)
	}
	return nil, fmt.Errorf("unknown store kind %q", kind)
}

func observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
