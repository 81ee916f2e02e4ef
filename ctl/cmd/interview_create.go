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

package cmd

import (
	"fmt"

	"github.com/obiba/onyx/common/product"
	"github.com/obiba/onyx/ctl/control"
	"github.com/spf13/cobra"
)

// interviewCreateCmd represents the interview create command
var interviewCreateCmd = &cobra.Command{
	Use:     "create [participant]",
	Aliases: []string{"new", "c", "n"},
	Short:   "start a new interview",
	Long: fmt.Sprintf(`The interview create command requests from %s the
creation of an interview for a participant. A participant may only have one
interview that is not cancelled.`, product.PRETTY_SHORTNAME),
	Run:  control.WrapCall(control.CreateInterview),
	Args: cobra.ExactArgs(1),
}

func init() {
	interviewCmd.AddCommand(interviewCreateCmd)

	interviewCreateCmd.Flags().StringP("user", "u", "", "user conducting the interview")
}
