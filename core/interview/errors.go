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

package interview

import (
	"errors"
	"fmt"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/store"
)

type ParticipantHasInterviewError struct {
	Participant string
	Id          uid.ID
}

func (e ParticipantHasInterviewError) Error() string {
	return fmt.Sprintf("participant %s already has interview %s", e.Participant, e.Id)
}

type InterviewNotOpenError struct {
	Id     uid.ID
	Status store.InterviewStatus
}

func (e InterviewNotOpenError) Error() string {
	return fmt.Sprintf("interview %s is %s", e.Id, e.Status)
}

var ErrInterviewOpen = errors.New("only closed or cancelled interviews can be deleted")
