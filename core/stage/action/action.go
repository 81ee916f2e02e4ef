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

// Package action defines the operations a user or the system can perform
// on a stage, the definitions a state exposes for them, and the record of
// a performed action.
package action

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/obiba/onyx/common/utils/uid"
)

type Type int

const (
	UNKNOWN Type = iota
	EXECUTE
	INTERRUPT
	SKIP
	STOP
	COMPLETE
	COMMENT
)

var _names = []string{
	"UNKNOWN",
	"EXECUTE",
	"INTERRUPT",
	"SKIP",
	"STOP",
	"COMPLETE",
	"COMMENT",
}

func (t Type) String() string {
	if t < UNKNOWN || t > COMMENT {
		return "UNKNOWN"
	}
	return _names[t]
}

// TypeFromString is case-insensitive. UNKNOWN is never a valid result.
func TypeFromString(s string) (Type, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, v := range _names {
		if i > 0 && s == v {
			return Type(i), nil
		}
	}
	return UNKNOWN, fmt.Errorf("unknown action type %q", s)
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := TypeFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Definition describes an action a state allows.
type Definition struct {
	Type            Type     `json:"type"`
	Label           string   `json:"label"`
	Description     string   `json:"description,omitempty"`
	CommentRequired bool     `json:"commentRequired,omitempty"`
	Reasons         []string `json:"reasons,omitempty"`
}

func NewDefinition(t Type, label string) Definition {
	return Definition{Type: t, Label: label}
}

func (d Definition) WithDescription(description string) Definition {
	d.Description = description
	return d
}

func (d Definition) WithComment() Definition {
	d.CommentRequired = true
	return d
}

func (d Definition) WithReasons(reasons ...string) Definition {
	d.Reasons = append([]string(nil), reasons...)
	return d
}

// AcceptsReason reports whether reason is allowed; a definition with no
// reasons accepts any.
func (d Definition) AcceptsReason(reason string) bool {
	if len(d.Reasons) == 0 {
		return true
	}
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

type Definitions []Definition

// Find returns the first definition of type t.
func (defs Definitions) Find(t Type) (Definition, bool) {
	for _, d := range defs {
		if d.Type == t {
			return d, true
		}
	}
	return Definition{}, false
}

func (defs Definitions) Types() []Type {
	out := make([]Type, len(defs))
	for i, d := range defs {
		out[i] = d.Type
	}
	return out
}

// Action is one performed operation on a stage of an interview.
type Action struct {
	Id          uid.ID    `json:"id"`
	InterviewId uid.ID    `json:"interviewId"`
	Stage       string    `json:"stage"`
	Type        Type      `json:"type"`
	User        string    `json:"user"`
	Comment     string    `json:"comment,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func New(interviewId uid.ID, stage string, t Type, user string) *Action {
	return &Action{
		Id:          uid.New(),
		InterviewId: interviewId,
		Stage:       stage,
		Type:        t,
		User:        user,
		Timestamp:   time.Now(),
	}
}

// InvalidError explains why an action does not satisfy its definition.
type InvalidError struct {
	Type   Type
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s action: %s", e.Type, e.Reason)
}

// Validate checks the action against the definition that allowed it.
func (a *Action) Validate(def Definition) error {
	if def.Type != a.Type {
		return &InvalidError{Type: a.Type, Reason: fmt.Sprintf("does not match definition %s", def.Type)}
	}
	if def.CommentRequired && len(strings.TrimSpace(a.Comment)) == 0 {
		return &InvalidError{Type: a.Type, Reason: "a comment is required"}
	}
	if !def.AcceptsReason(a.Reason) {
		return &InvalidError{Type: a.Type, Reason: fmt.Sprintf("reason %q not allowed", a.Reason)}
	}
	return nil
}
