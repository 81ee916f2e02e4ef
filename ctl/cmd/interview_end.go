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

// interviewCloseCmd represents the interview close command
var interviewCloseCmd = &cobra.Command{
	Use:   "close [interview id]",
	Short: "close an interview",
	Long: `The interview close command ends an interview normally. Its stages can
no longer be acted upon.`,
	Run:  control.WrapCall(control.CloseInterview),
	Args: cobra.ExactArgs(1),
}

// interviewCancelCmd represents the interview cancel command
var interviewCancelCmd = &cobra.Command{
	Use:   "cancel [interview id]",
	Short: "cancel an interview",
	Long: `The interview cancel command abandons an interview. The participant may
then start a new one.`,
	Run:  control.WrapCall(control.CancelInterview),
	Args: cobra.ExactArgs(1),
}

// interviewDeleteCmd represents the interview delete command
var interviewDeleteCmd = &cobra.Command{
	Use:     "delete [interview id]",
	Aliases: []string{"rm", "d"},
	Short:   "delete an ended interview",
	Long: `The interview delete command removes a closed or cancelled interview and its action log.
It asks for confirmation unless --yes is given.`,
	PreRunE:      control.Confirm("delete interview"),
	Run:          control.WrapCall(control.DeleteInterview),
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

func init() {
	interviewCmd.AddCommand(interviewCloseCmd)
	interviewCmd.AddCommand(interviewCancelCmd)
	interviewCmd.AddCommand(interviewDeleteCmd)

	interviewDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
