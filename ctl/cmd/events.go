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

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"ev"},
	Short:   "follow interview events",
}

// eventsWatchCmd represents the events watch command
var eventsWatchCmd = &cobra.Command{
	Use:   "watch [interview|transition|action]...",
	Short: "print interview events as they are published",
	Long: `The events watch command reads interview, stage transition and action
events from Kafka and prints them until interrupted. Without arguments all
three kinds are followed.`,
	Run:       control.WatchEvents,
	ValidArgs: []string{"interview", "transition", "action"},
	Args:      cobra.OnlyValidArgs,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.Flags().StringP("group", "g", "", "Kafka consumer group, reads from the latest event when empty")
}
