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

// stageCmd represents the stage command
var stageCmd = &cobra.Command{
	Use:     "stage",
	Aliases: []string{"st"},
	Short:   "inspect and drive the stages of an interview",
	Long:    `The stage command allows you to query the stages of an interview and perform actions on them.`,
}

// stageListCmd represents the stage list command
var stageListCmd = &cobra.Command{
	Use:     "list [interview id]",
	Aliases: []string{"ls", "l"},
	Short:   "list the stages of an interview with their state",
	Run:     control.WrapCall(control.GetStages),
	Args:    cobra.ExactArgs(1),
}

// stageShowCmd represents the stage show command
var stageShowCmd = &cobra.Command{
	Use:     "show [interview id] [stage]",
	Aliases: []string{"get", "s", "g"},
	Short:   "show a stage and the actions its current state allows",
	Run:     control.WrapCall(control.ShowStage),
	Args:    cobra.ExactArgs(2),
}

// stageDoCmd represents the stage do command
var stageDoCmd = &cobra.Command{
	Use:   "do [interview id] [stage] [action]",
	Short: "perform an action on a stage",
	Long: `The stage do command performs an action on a stage. The action is one of
EXECUTE, INTERRUPT, SKIP, STOP or COMPLETE and must be allowed by the current
state of the stage; some actions require a comment or a reason.`,
	Example: `  onyxctl stage do 2FkXbJhFq4k ANTHRO execute -u alice
  onyxctl stage do 2FkXbJhFq4k ANTHRO skip -u alice -r participantRefused
  onyxctl stage do 2FkXbJhFq4k CON stop -u alice -c "withdrawn by phone"`,
	Run:  control.WrapCall(control.DoAction),
	Args: cobra.ExactArgs(3),
}

func init() {
	rootCmd.AddCommand(stageCmd)
	stageCmd.AddCommand(stageListCmd)
	stageCmd.AddCommand(stageShowCmd)
	stageCmd.AddCommand(stageDoCmd)

	stageListCmd.Flags().StringP("filter", "f", "", "only list the stages whose name matches this glob")

	stageDoCmd.Flags().StringP("user", "u", "", "user performing the action")
	stageDoCmd.Flags().StringP("comment", "c", "", "comment recorded with the action")
	stageDoCmd.Flags().StringP("reason", "r", "", "reason recorded with the action")
}
