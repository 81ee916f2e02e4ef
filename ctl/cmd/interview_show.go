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
	"github.com/obiba/onyx/ctl/control"
	"github.com/spf13/cobra"
)

// interviewShowCmd represents the interview show command
var interviewShowCmd = &cobra.Command{
	Use:     "show [interview id]",
	Aliases: []string{"get", "s", "g"},
	Short:   "show interview information",
	Long:    `The interview show command prints the details of an interview and a summary of its stages.`,
	Run:     control.WrapCall(control.ShowInterview),
	Args:    cobra.ExactArgs(1),
}

// interviewActionsCmd represents the interview actions command
var interviewActionsCmd = &cobra.Command{
	Use:     "actions [interview id]",
	Aliases: []string{"log", "a"},
	Short:   "show the actions performed during an interview",
	Run:     control.WrapCall(control.GetActions),
	Args:    cobra.ExactArgs(1),
}

func init() {
	interviewCmd.AddCommand(interviewShowCmd)
	interviewCmd.AddCommand(interviewActionsCmd)
}
