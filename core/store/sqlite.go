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

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/stage/action"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS interviews (
	id TEXT PRIMARY KEY,
	participant TEXT NOT NULL,
	username TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_interviews_participant ON interviews(participant);

CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	interview_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	type TEXT NOT NULL,
	username TEXT NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_interview ON actions(interview_id);

CREATE TABLE IF NOT EXISTS mementos (
	interview_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	state TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (interview_id, stage)
);
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at path. ":memory:" gives a
// throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// every pooled connection to :memory: would be a different database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *SQLiteStore) CreateInterview(ctx context.Context, itw *Interview) error {
	defer observe("create_interview", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO interviews (id, participant, username, status, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?)",
		itw.Id.String(), itw.Participant, itw.User, string(itw.Status), toMillis(itw.StartedAt), toMillis(itw.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateInterview(ctx context.Context, itw *Interview) error {
	defer observe("update_interview", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE interviews SET participant = ?, username = ?, status = ?, started_at = ?, ended_at = ? WHERE id = ?",
		itw.Participant, itw.User, string(itw.Status), toMillis(itw.StartedAt), toMillis(itw.EndedAt), itw.Id.String(),
	)
	if err != nil {
		return fmt.Errorf("update interview: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return InterviewNotFoundError{Id: itw.Id}
	}
	return nil
}

const interviewColumns = "id, participant, username, status, started_at, ended_at"

func scanInterview(row interface{ Scan(...any) error }) (*Interview, error) {
	var (
		itw            Interview
		id, status     string
		started, ended int64
	)
	if err := row.Scan(&id, &itw.Participant, &itw.User, &status, &started, &ended); err != nil {
		return nil, err
	}
	itw.Id = uid.ID(id)
	itw.Status = InterviewStatus(status)
	itw.StartedAt = fromMillis(started)
	itw.EndedAt = fromMillis(ended)
	return &itw, nil
}

func (s *SQLiteStore) GetInterview(ctx context.Context, id uid.ID) (*Interview, error) {
	defer observe("get_interview", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+interviewColumns+" FROM interviews WHERE id = ?", id.String())
	itw, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, InterviewNotFoundError{Id: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query interview: %w", err)
	}
	return itw, nil
}

func (s *SQLiteStore) queryInterviews(ctx context.Context, query string, args ...any) ([]*Interview, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}
	defer rows.Close()

	out := make([]*Interview, 0)
	for rows.Next() {
		itw, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		out = append(out, itw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) FindInterviews(ctx context.Context, participant string) ([]*Interview, error) {
	defer observe("find_interviews", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryInterviews(ctx,
		"SELECT "+interviewColumns+" FROM interviews WHERE participant = ? ORDER BY rowid", participant)
}

func (s *SQLiteStore) ListInterviews(ctx context.Context) ([]*Interview, error) {
	defer observe("list_interviews", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryInterviews(ctx, "SELECT "+interviewColumns+" FROM interviews ORDER BY rowid")
}

func (s *SQLiteStore) DeleteInterview(ctx context.Context, id uid.ID) error {
	defer observe("delete_interview", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM interviews WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete interview: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return InterviewNotFoundError{Id: id}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM actions WHERE interview_id = ?", id.String()); err != nil {
		return fmt.Errorf("delete actions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM mementos WHERE interview_id = ?", id.String()); err != nil {
		return fmt.Errorf("delete mementos: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendAction(ctx context.Context, a *action.Action) error {
	defer observe("append_action", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interviews WHERE id = ?", a.InterviewId.String()).Scan(&count)
	if err != nil {
		return fmt.Errorf("query interview: %w", err)
	}
	if count == 0 {
		return InterviewNotFoundError{Id: a.InterviewId}
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO actions (id, interview_id, stage, type, username, comment, reason, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		a.Id.String(), a.InterviewId.String(), a.Stage, a.Type.String(), a.User, a.Comment, a.Reason, toMillis(a.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListActions(ctx context.Context, interviewId uid.ID) ([]*action.Action, error) {
	defer observe("list_actions", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, stage, type, username, comment, reason, timestamp FROM actions WHERE interview_id = ? ORDER BY rowid",
		interviewId.String())
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	out := make([]*action.Action, 0)
	for rows.Next() {
		var (
			a         action.Action
			id, typ   string
			timestamp int64
		)
		if err := rows.Scan(&id, &a.Stage, &typ, &a.User, &a.Comment, &a.Reason, &timestamp); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if a.Type, err = action.TypeFromString(typ); err != nil {
			return nil, fmt.Errorf("action %s: %w", id, err)
		}
		a.Id = uid.ID(id)
		a.InterviewId = interviewId
		a.Timestamp = fromMillis(timestamp)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveMemento(ctx context.Context, m Memento) error {
	defer observe("save_memento", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mementos (interview_id, stage, state, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (interview_id, stage) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		m.InterviewId.String(), m.Stage, m.State, toMillis(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save memento: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadMemento(ctx context.Context, interviewId uid.ID, stage string) (Memento, bool, error) {
	defer observe("load_memento", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := Memento{InterviewId: interviewId, Stage: stage}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT state, updated_at FROM mementos WHERE interview_id = ? AND stage = ?",
		interviewId.String(), stage).Scan(&m.State, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Memento{}, false, nil
	}
	if err != nil {
		return Memento{}, false, fmt.Errorf("query memento: %w", err)
	}
	m.UpdatedAt = fromMillis(updated)
	return m, true, nil
}

func (s *SQLiteStore) ListMementos(ctx context.Context, interviewId uid.ID) ([]Memento, error) {
	defer observe("list_mementos", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT stage, state, updated_at FROM mementos WHERE interview_id = ? ORDER BY stage",
		interviewId.String())
	if err != nil {
		return nil, fmt.Errorf("query mementos: %w", err)
	}
	defer rows.Close()

	out := make([]Memento, 0)
	for rows.Next() {
		m := Memento{InterviewId: interviewId}
		var updated int64
		if err := rows.Scan(&m.Stage, &m.State, &updated); err != nil {
			return nil, fmt.Errorf("scan memento: %w", err)
		}
		m.UpdatedAt = fromMillis(updated)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
