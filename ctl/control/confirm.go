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

package control

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

var ErrAborted = errors.New("aborted by user")

// askOne is swapped out in tests, survey needs a terminal.
var askOne = survey.AskOne

// Confirm returns a cobra PreRunE that asks the user before a destructive
// call, unless --yes was given.
func Confirm(what string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}
		if yes {
			return nil
		}

		subject := what
		if len(args) > 0 {
			subject = fmt.Sprintf("%s %s", what, args[0])
		}
		ok := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Really %s?", subject),
			Default: false,
		}
		if err = askOne(prompt, &ok); err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
		return nil
	}
}
