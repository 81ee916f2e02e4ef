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

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/obiba/onyx/common/event"
	"github.com/obiba/onyx/common/event/topic"
	"github.com/spf13/cobra"
)

var watchTopics = map[string]topic.Topic{
	"interview":  topic.Ev_Interview,
	"transition": topic.Ev_Stage_Transition,
	"action":     topic.Ev_Stage_Action,
}

func formatEnvelope(env *event.Envelope) string {
	ts := time.UnixMilli(env.Timestamp).Local().Format("15:04:05.000")
	switch {
	case env.Interview != nil:
		e := env.Interview
		return fmt.Sprintf("%s %s %s participant %s %s", grey(ts), blue("interview"), e.GetInterviewId(), e.Participant, colorInterviewStatus(e.Status))
	case env.Transition != nil:
		e := env.Transition
		return fmt.Sprintf("%s %s %s %s %s --%s--> %s", grey(ts), blue("transition"), e.GetInterviewId(), e.Stage, e.Src, yellow(e.Event), green(e.Dst))
	case env.Action != nil:
		e := env.Action
		result := green(e.State)
		if len(e.Error) > 0 {
			result = red(e.Error)
		}
		return fmt.Sprintf("%s %s %s %s %s by %s: %s", grey(ts), blue("action"), e.GetInterviewId(), e.Stage, e.Type, e.User, result)
	}
	return fmt.Sprintf("%s %s", grey(ts), env.Name)
}

// watch prints what the readers deliver until ctx is done.
func watch(ctx context.Context, readers []event.Reader, o io.Writer) error {
	envelopes := make(chan *event.Envelope)
	var wg sync.WaitGroup
	for _, r := range readers {
		wg.Add(1)
		go func(r event.Reader) {
			defer wg.Done()
			for {
				env, err := r.Next(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.WithError(err).Warn("cannot read event")
					select {
					case <-time.After(time.Second):
						continue
					case <-ctx.Done():
						return
					}
				}
				select {
				case envelopes <- env:
				case <-ctx.Done():
					return
				}
			}
		}(r)
	}
	go func() {
		wg.Wait()
		close(envelopes)
	}()

	for env := range envelopes {
		_, _ = fmt.Fprintln(o, formatEnvelope(env))
	}
	return nil
}

// WatchEvents streams interview events from Kafka until interrupted.
func WatchEvents(cmd *cobra.Command, args []string) {
	names := args
	if len(names) == 0 {
		names = []string{"interview", "transition", "action"}
	}
	group, _ := cmd.Flags().GetString("group")

	readers := make([]event.Reader, 0, len(names))
	for _, name := range names {
		t, ok := watchTopics[name]
		if !ok {
			log.WithPrefix(cmd.Use).Fatalf("unknown event kind %q, expecting interview, transition or action", name)
			os.Exit(1)
		}
		r := event.NewReaderWithTopic(t, group)
		if _, dummy := r.(*event.DummyReader); dummy {
			log.WithPrefix(cmd.Use).Fatal("no Kafka endpoints configured, set kafkaEndpoints")
			os.Exit(1)
		}
		readers = append(readers, r)
	}
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := watch(ctx, readers, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.WithPrefix(cmd.Use).WithError(err).Fatal("event stream failed")
	}
}
