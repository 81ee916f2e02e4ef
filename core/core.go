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

package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/obiba/onyx/common/logger"
	"github.com/obiba/onyx/common/product"
	"github.com/obiba/onyx/core/metrics"
	"github.com/obiba/onyx/core/the"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var log = logger.New(logrus.StandardLogger(), "core")

const (
	fileLimitWant = 65536
	fileLimitMin  = 8192
)

func parseMetricsEndpoint(metricsEndpoint string) (uint16, string, error) {
	pattern := `(^[0-9]{4,5})\/([a-zA-Z]+)`
	re := regexp.MustCompile(pattern)
	matches := re.FindStringSubmatch(metricsEndpoint)

	if matches == nil {
		return 0, "", fmt.Errorf("failed to parse metrics endpoint: %s", metricsEndpoint)
	}
	port, err := strconv.ParseUint(matches[1], 10, 16)
	if err != nil {
		return 0, "", err
	}
	return uint16(port), matches[2], nil
}

// runMetrics serves the Prometheus registry on its own port when
// metricsEndpoint is set. The control port always serves /metrics too.
func runMetrics() *http.Server {
	metricsEndpoint := viper.GetString("metricsEndpoint")
	if len(metricsEndpoint) == 0 {
		return nil
	}
	port, endpoint, err := parseMetricsEndpoint(metricsEndpoint)
	if err != nil {
		log.WithField("error", err).Error("Failed to parse metrics endpoint")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/"+endpoint, promhttp.Handler())
	svr := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		log.Infof("Starting to listen on endpoint %s:%d for metrics", endpoint, port)
		if err := svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Errorf("failed to run metrics on port %d and endpoint: %s", port, endpoint)
		}
	}()
	return svr
}

// Run is the entry point for the Onyx core.
func Run() error {
	logger.SetLevelFromFlags(viper.GetBool("verbose"), viper.GetBool("veryVerbose"))

	if viper.GetBool("veryVerbose") {
		log.WithField("configuration", viper.AllSettings()).Debug("core starting up")
	}
	log.Infof("%s core (%s v%s build %s) starting up", product.PRETTY_FULLNAME, product.PRETTY_SHORTNAME, product.VERSION, product.BUILD)

	// The cancel func is the shutdown func: it releases anything started
	// with ctx.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Register()

	// Raise soft file limit
	err := setLimits()
	if err != nil {
		return err
	}

	state, err := newGlobalState(ctx, cancel)
	if err != nil {
		return err
	}

	s := NewHttpService(state.manager, state.modules.Names())

	// Set up channel to receive Unix Signals
	signals(state, s)

	metricsSvr := runMetrics()

	log.Infof("Everything initiated and listening on control port: %d", viper.GetInt("controlPort"))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", viper.GetInt("controlPort")))
	if err != nil {
		state.close()
		return fmt.Errorf("cannot listen on control port %d: %w", viper.GetInt("controlPort"), err)
	}
	err = s.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	if metricsSvr != nil {
		_ = metricsSvr.Close()
	}
	state.close()
	the.ClearEventWriters()

	return err
}

func setLimits() error {
	var rLimit syscall.Rlimit

	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return err
	}
	if rLimit.Cur > fileLimitWant {
		return nil
	}
	if rLimit.Max < fileLimitMin {
		err = fmt.Errorf("need at least %v file descriptors",
			fileLimitMin)
		return err
	}
	if rLimit.Max < fileLimitWant {
		rLimit.Cur = rLimit.Max
	} else {
		rLimit.Cur = fileLimitWant
	}
	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		// try min value
		rLimit.Cur = fileLimitMin
		err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
		if err != nil {
			return err
		}
	}

	return nil
}
