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

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: fmt.Sprintf("get information on the %s instance", product.PRETTY_SHORTNAME),
	Long: fmt.Sprintf(`The info command queries the running instance of %s
for its version, loaded modules and stage catalogue size.`, product.PRETTY_SHORTNAME),
	Run:  control.WrapCall(control.GetInfo),
	Args: cobra.NoArgs,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
