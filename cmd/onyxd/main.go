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

// Command onyxd serves the Onyx interview workflow over HTTP.
package main

import (
	"os"

	"github.com/obiba/onyx/core"
	"github.com/obiba/onyx/core/module"
	"github.com/obiba/onyx/core/module/jade"
	"github.com/obiba/onyx/core/module/marble"
	log "github.com/sirupsen/logrus"
	"github.com/teo/logrus-prefixed-formatter"
)

func init() {
	module.RegisterModule(jade.Name, jade.New)
	module.RegisterModule(marble.Name, marble.New)

	log.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp: true,
		SpacePadding:  20,
		PrefixPadding: 12,

		// Needed for colored stdout/stderr in GoLand, IntelliJ, etc.
		ForceColors:     true,
		ForceFormatting: true,
	})
	log.SetOutput(os.Stdout)
}

func main() {
	if err := core.NewConfig(); err != nil {
		log.Fatal(err)
	}

	if err := core.Run(); err != nil {
		log.Fatal(err)
	}
}
