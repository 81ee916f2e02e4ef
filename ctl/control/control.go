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

// Package control handles the details of control calls to the Onyx core.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/obiba/onyx/common/logger"
	"github.com/obiba/onyx/common/utils"
	"github.com/obiba/onyx/ctl"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	CALL_TIMEOUT  = 55 * time.Second
	SPINNER_TICK  = 100 * time.Millisecond
	// longest message or comment printed in a table cell
	MESSAGE_WIDTH = 48
)

var log = logger.New(logrus.StandardLogger(), "onyxctl")

type RunFunc func(*cobra.Command, []string)

type ControlCall func(context.Context, *ctl.Client, *cobra.Command, []string, io.Writer) error

func newClient() (*ctl.Client, error) {
	return ctl.NewClient(viper.GetString("endpoint"), nil)
}

// WrapCall runs call behind a spinner and prints what it wrote once it
// returns, or exits non-zero on error.
func WrapCall(call ControlCall) RunFunc {
	return func(cmd *cobra.Command, args []string) {
		endpoint := viper.GetString("endpoint")
		log.WithPrefix(cmd.Use).
			WithField("endpoint", endpoint).
			Debug("initializing HTTP client")

		client, err := newClient()
		if err != nil {
			log.WithPrefix(cmd.Use).WithError(err).Fatal("cannot create client")
			os.Exit(1)
		}

		s := spinner.New(spinner.CharSets[11], SPINNER_TICK)
		s.Color("yellow")
		s.Suffix = " working..."
		s.Writer = os.Stderr
		s.Start()

		cxt, cancel := context.WithTimeout(context.Background(), CALL_TIMEOUT)
		defer cancel()

		var out strings.Builder
		err = call(cxt, client, cmd, args, &out)
		s.Stop()
		if err != nil {
			log.WithPrefix(cmd.Use).
				WithError(err).
				Fatal("command finished with error")
			os.Exit(1)
		}

		fmt.Print(out.String())
	}
}

func GetInfo(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	info, err := client.GetInfo(cxt)
	if err != nil {
		return
	}

	versionStr := info.Version
	// empty or 0.0.0 when the core was built without version ldflags
	if len(versionStr) == 0 || strings.HasPrefix(versionStr, "0.0.0") {
		versionStr = "dev"
	}

	_, _ = fmt.Fprintf(o, "endpoint:       %s\n", green(viper.GetString("endpoint")))
	_, _ = fmt.Fprintf(o, "core version:   %s %s\n", info.Name, green(versionStr))
	_, _ = fmt.Fprintf(o, "started:        %s\n", formatTime(time.UnixMilli(info.StartedAt)))
	_, _ = fmt.Fprintf(o, "modules:        %s\n", strings.Join(info.Modules, ", "))
	_, _ = fmt.Fprintf(o, "stages count:   %s\n", green(len(info.Stages)))
	return nil
}

func ShowCatalogue(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return
	}
	stages, err := client.GetStages(cxt, filter)
	if err != nil {
		return
	}
	if len(stages) == 0 {
		_, _ = fmt.Fprintln(o, "no stages")
		return nil
	}

	flat, err := cmd.Flags().GetBool("flat")
	if err != nil {
		return
	}
	if !flat {
		drawCatalogue(stages, o)
		return nil
	}
	data := make([][]string, 0, len(stages))
	for _, st := range stages {
		data = append(data, []string{st.Name, st.Module, st.DisplayLabel(), st.DependsOn})
	}
	drawTable([]string{"stage", "module", "label", "depends on"}, data, o)
	return nil
}

func CreateInterview(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return
	}
	itw, err := client.CreateInterview(cxt, args[0], user)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "new interview created for participant %s\n", blue(itw.Participant))
	_, _ = fmt.Fprintf(o, "interview id:   %s\n", grey(itw.Id.String()))
	_, _ = fmt.Fprintf(o, "status:         %s\n", colorInterviewStatus(string(itw.Status)))
	return nil
}

func GetInterviews(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	status, err := cmd.Flags().GetString("status")
	if err != nil {
		return
	}
	interviews, err := client.GetInterviews(cxt, status)
	if err != nil {
		return
	}
	if len(interviews) == 0 {
		_, _ = fmt.Fprintln(o, "no interviews")
		return nil
	}

	data := make([][]string, 0, len(interviews))
	for _, itw := range interviews {
		data = append(data, []string{
			itw.Id.String(),
			itw.Participant,
			itw.User,
			formatTime(itw.StartedAt),
			colorInterviewStatus(string(itw.Status)),
		})
	}
	drawTable([]string{"id", "participant", "user", "started", "status"}, data, o)
	return nil
}

func ShowInterview(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	if len(args) != 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	itw, err := client.GetInterview(cxt, args[0])
	if err != nil {
		return
	}
	statuses, err := client.GetStageStatuses(cxt, args[0], "")
	if err != nil {
		return
	}

	_, _ = fmt.Fprintf(o, "interview id:   %s\n", grey(itw.Id.String()))
	_, _ = fmt.Fprintf(o, "participant:    %s\n", blue(itw.Participant))
	_, _ = fmt.Fprintf(o, "user:           %s\n", itw.User)
	_, _ = fmt.Fprintf(o, "started:        %s\n", formatTime(itw.StartedAt))
	_, _ = fmt.Fprintf(o, "ended:          %s\n", formatTime(itw.EndedAt))
	_, _ = fmt.Fprintf(o, "status:         %s\n", colorInterviewStatus(string(itw.Status)))

	final := 0
	for _, s := range statuses {
		if s.Final {
			final++
		}
	}
	_, _ = fmt.Fprintf(o, "stages:         %s/%d final\n", green(final), len(statuses))
	return nil
}

func CloseInterview(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	itw, err := client.CloseInterview(cxt, args[0])
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "interview %s closed, status %s\n", grey(itw.Id.String()), colorInterviewStatus(string(itw.Status)))
	return nil
}

func CancelInterview(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	itw, err := client.CancelInterview(cxt, args[0])
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "interview %s cancelled, status %s\n", grey(itw.Id.String()), colorInterviewStatus(string(itw.Status)))
	return nil
}

func DeleteInterview(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) error {
	if err := client.DeleteInterview(cxt, args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(o, "interview %s deleted\n", grey(args[0]))
	return nil
}

func GetStages(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return
	}
	statuses, err := client.GetStageStatuses(cxt, args[0], filter)
	if err != nil {
		return
	}
	if len(statuses) == 0 {
		_, _ = fmt.Fprintln(o, "no stages")
		return nil
	}

	data := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		data = append(data, []string{s.Stage, s.Module, colorStageStatus(s), utils.TruncateString(s.Message, MESSAGE_WIDTH), formatActions(s.Actions)})
	}
	drawTable([]string{"stage", "module", "state", "message", "actions"}, data, o)
	return nil
}

func ShowStage(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	s, err := client.GetStageStatus(cxt, args[0], args[1])
	if err != nil {
		return
	}

	_, _ = fmt.Fprintf(o, "stage:          %s (%s)\n", blue(s.Stage), s.Label)
	_, _ = fmt.Fprintf(o, "module:         %s\n", s.Module)
	if len(s.DependsOn) > 0 {
		_, _ = fmt.Fprintf(o, "depends on:     %s\n", s.DependsOn)
	}
	_, _ = fmt.Fprintf(o, "state:          %s\n", colorStageStatus(*s))
	_, _ = fmt.Fprintf(o, "message:        %s\n", s.Message)
	_, _ = fmt.Fprintf(o, "completed:      %t\n", s.Completed)
	_, _ = fmt.Fprintf(o, "final:          %t\n", s.Final)

	if len(s.Actions) == 0 {
		_, _ = fmt.Fprintf(o, "actions:        %s\n", grey("none"))
		return nil
	}
	_, _ = fmt.Fprintln(o, "actions:")
	data := make([][]string, 0, len(s.Actions))
	for _, d := range s.Actions {
		comment := ""
		if d.CommentRequired {
			comment = yellow("required")
		}
		data = append(data, []string{d.Type.String(), d.Label, comment, strings.Join(d.Reasons, ", ")})
	}
	drawTable([]string{"type", "label", "comment", "reasons"}, data, o)
	return nil
}

func DoAction(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	if len(args) != 3 {
		return errors.New("expecting interview id, stage and action type")
	}
	req := ctl.ActionRequest{Type: strings.ToUpper(args[2])}
	if req.User, err = cmd.Flags().GetString("user"); err != nil {
		return
	}
	if req.Comment, err = cmd.Flags().GetString("comment"); err != nil {
		return
	}
	if req.Reason, err = cmd.Flags().GetString("reason"); err != nil {
		return
	}

	s, err := client.DoAction(cxt, args[0], args[1], req)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(o, "%s performed on %s, state is now %s\n", req.Type, blue(s.Stage), colorStageStatus(*s))
	_, _ = fmt.Fprintf(o, "message:        %s\n", s.Message)
	return nil
}

func GetActions(cxt context.Context, client *ctl.Client, cmd *cobra.Command, args []string, o io.Writer) (err error) {
	actions, err := client.GetActions(cxt, args[0])
	if err != nil {
		return
	}
	if len(actions) == 0 {
		_, _ = fmt.Fprintln(o, "no actions")
		return nil
	}
	data := make([][]string, 0, len(actions))
	for _, a := range actions {
		data = append(data, []string{formatTime(a.Timestamp), a.Stage, a.Type.String(), a.User, a.Reason, utils.TruncateString(a.Comment, MESSAGE_WIDTH)})
	}
	drawTable([]string{"time", "stage", "type", "user", "reason", "comment"}, data, o)
	return nil
}
