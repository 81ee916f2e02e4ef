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
	"errors"
	"path/filepath"

	"github.com/iancoleman/strcase"
	"github.com/obiba/onyx/core/store"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

func setDefaults() error {
	viper.Set("component", "core")

	viper.SetDefault("controlPort", 47500)
	viper.SetDefault("catalogue", "/etc/onyx/stages.yaml")
	viper.SetDefault("store", store.KIND_SQLITE)
	viper.SetDefault("storePath", "/var/lib/onyx/onyx.db")
	viper.SetDefault("kafkaEndpoints", []string{})
	viper.SetDefault("modules", []string{})
	viper.SetDefault("metricsEndpoint", "")
	viper.SetDefault("config", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("veryVerbose", false)
	return nil
}

func setFlags() error {
	pflag.Int("controlPort", viper.GetInt("controlPort"), "Port of the Onyx HTTP API")
	pflag.String("catalogue", viper.GetString("catalogue"), "Path to the stage catalogue (YAML or TOML)")
	pflag.String("store", viper.GetString("store"), "Interview store backend ["+store.KIND_SQLITE+", "+store.KIND_MEMORY+"]")
	pflag.String("storePath", viper.GetString("storePath"), "Path to the SQLite database file")
	pflag.StringSlice("kafkaEndpoints", viper.GetStringSlice("kafkaEndpoints"), "Kafka brokers to publish interview events to, none disables publishing")
	pflag.StringSlice("modules", viper.GetStringSlice("modules"), "Stage modules to load, all registered modules when empty")
	pflag.String("metricsEndpoint", viper.GetString("metricsEndpoint"), "Serve metrics on a separate port, as port/path (e.g. 8086/metrics)")
	pflag.String("config", viper.GetString("config"), "Configuration file (YAML or TOML)")
	pflag.Bool("verbose", viper.GetBool("verbose"), "Verbose logging")
	pflag.Bool("veryVerbose", viper.GetBool("veryVerbose"), "Very verbose logging")

	pflag.Parse()
	return viper.BindPFlags(pflag.CommandLine)
}

// Bind environment variables with the prefix ONYX
// e.g. ONYX_CONTROL_PORT, ONYX_STORE_PATH
func bindEnvironmentVariables() error {
	viper.SetEnvPrefix("ONYX")
	viper.AutomaticEnv()

	var err error
	pflag.CommandLine.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = viper.BindEnv(f.Name, envName(f.Name))
	})
	return err
}

func envName(key string) string {
	return "ONYX_" + strcase.ToScreamingSnake(key)
}

func readConfigFile() error {
	path := viper.GetString("config")
	if len(path) == 0 {
		return nil
	}
	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}

func sanitizeStorePath() {
	viper.Set("storePath", filepath.Clean(viper.GetString("storePath")))
}

func checkStoreDirRights() error {
	if viper.GetString("store") != store.KIND_SQLITE {
		return nil
	}
	dir := filepath.Dir(viper.GetString("storePath"))
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return errors.New("No write access for store directory \"" + dir + "\": " + err.Error())
	}
	return nil
}

func checkStoreKind() error {
	switch viper.GetString("store") {
	case store.KIND_SQLITE, store.KIND_MEMORY:
		return nil
	}
	return errors.New("unknown store backend \"" + viper.GetString("store") + "\"")
}

// NewConfig is the constructor for a new config.
func NewConfig() (err error) {
	if err = setDefaults(); err != nil {
		return
	}
	if err = setFlags(); err != nil {
		return
	}
	if err = bindEnvironmentVariables(); err != nil {
		return
	}
	if err = readConfigFile(); err != nil {
		return
	}
	if err = checkStoreKind(); err != nil {
		return
	}
	sanitizeStorePath()
	if err = checkStoreDirRights(); err != nil {
		return
	}
	return
}
