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
	"github.com/spf13/cobra"
)

// interviewCmd represents the interview command
var interviewCmd = &cobra.Command{
	Use:     "interview",
	Aliases: []string{"itw", "i"},
	Short:   "create, inspect or end participant interviews",
	Long:    `The interview command allows you to perform operations on participant interviews.`,
}

func init() {
	rootCmd.AddCommand(interviewCmd)
}
