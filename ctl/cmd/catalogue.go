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

// catalogueCmd represents the catalogue command
var catalogueCmd = &cobra.Command{
	Use:     "catalogue",
	Aliases: []string{"cat", "c"},
	Short:   "inspect the stage catalogue",
	Long:    `The catalogue command allows you to inspect the stages an interview is made of.`,
}

// catalogueShowCmd represents the catalogue show command
var catalogueShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"s", "tree"},
	Short:   "show the stages and their dependencies",
	Long: `The catalogue show command draws the stage catalogue as a tree, each
stage under the stages its condition depends on.`,
	Run:  control.WrapCall(control.ShowCatalogue),
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(catalogueCmd)
	catalogueCmd.AddCommand(catalogueShowCmd)

	catalogueShowCmd.Flags().StringP("filter", "f", "", "only show the stages whose name matches this glob")
	catalogueShowCmd.Flags().Bool("flat", false, "print a table instead of a tree")
}
