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

// Package uid generates the short, time-ordered identifiers used for
// interviews and recorded actions.
package uid

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/osamingo/indigo"
	"github.com/pborman/uuid"
	"github.com/rs/xid"
)

type ID string

var uidGen *indigo.Generator

// ErrEmpty is returned when parsing an empty identifier.
var ErrEmpty = errors.New("empty identifier")

func init() {
	// The generator needs a uint16 unique to this host. We derive it from the
	// standard machine-id (a UUID) and fall back to 42 when it is unreadable,
	// e.g. in some containers.
	var machineId uint16 = 42

	id, err := machineid.ID()
	if err == nil {
		parsed := uuid.Parse(id)
		if parsed != nil {
			// first 2 bytes of the node block, the leading bits are clock-dependent
			array := parsed.NodeID()
			machineId = binary.BigEndian.Uint16(array[0:2])
		}
	}

	uidGen = indigo.New(
		nil,
		indigo.StartTime(time.Unix(1257894000, 0)),
		indigo.MachineID(func() (uint16, error) { return machineId, nil }),
	)
}

func (u ID) String() string {
	return string(u)
}

func (u ID) IsNil() bool {
	return len(u) == 0
}

// FromString accepts both indigo identifiers and the xid fallback format,
// since identifiers persisted by an earlier run may be of either kind.
func FromString(s string) (ID, error) {
	if len(s) == 0 {
		return NilID(), ErrEmpty
	}
	if _, err := uidGen.Decompose(s); err == nil {
		return ID(s), nil
	}
	if _, err := xid.FromString(s); err != nil {
		return NilID(), err
	}
	return ID(s), nil
}

func NilID() ID {
	return ""
}

func New() ID {
	id, err := uidGen.NextID()
	if err != nil {
		return ID(xid.New().String())
	}
	return ID(id)
}

func (u ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*u = ID(s)
	return nil
}
