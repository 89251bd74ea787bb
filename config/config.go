/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config holds the engine-wide configuration for a worker process.

Configuration is a flat JSON file with a fixed set of known keys. If the
file does not exist it is created with DefaultConfig. GET_ENGINE_CONFIG
serializes the Config map (feature toggles such as EnableMetrics
included) back to the coordinator.
*/
package config

import (
	"fmt"
	"strconv"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
)

/*
DefaultConfigFile is the default config file name for a worker process.
*/
var DefaultConfigFile = "grape.config.json"

/*
Known configuration options.
*/
const (
	ObjectStoreSocket    = "ObjectStoreSocket"
	RPCListenAddress     = "RPCListenAddress"
	WorkerRank           = "WorkerRank"
	WorkerCount          = "WorkerCount"
	EnableMetrics        = "EnableMetrics"
	MetricsListenAddress = "MetricsListenAddress"
	AlgorithmLibraryRoot = "AlgorithmLibraryRoot"
	LogLevel             = "LogLevel"
	LogFile              = "LogFile"
)

/*
DefaultConfig is the default configuration used when no config file
exists yet, or as a fallback for missing keys.
*/
var DefaultConfig = map[string]interface{}{
	ObjectStoreSocket:    "/tmp/grape-store.sock",
	RPCListenAddress:     "localhost:9091",
	WorkerRank:           0.0,
	WorkerCount:          1.0,
	EnableMetrics:        false,
	MetricsListenAddress: "localhost:9092",
	AlgorithmLibraryRoot: "algorithms",
	LogLevel:             "Info",
	LogFile:              "",
}

/*
Config is the actual configuration in effect for this process.
*/
var Config map[string]interface{}

/*
LoadConfigFile loads a given config file. If the config file does not
exist it is created with DefaultConfig.
*/
func LoadConfigFile(configfile string) error {
	var err error

	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)

	return err
}

/*
LoadDefaultConfig loads the default configuration without touching disk.
Useful for tests.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

/*
Str reads a config value as a string.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int.
*/
func Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a bool.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Map returns a shallow copy of the current config (of DefaultConfig
when no config has been loaded), suitable for GET_ENGINE_CONFIG
serialization.
*/
func Map() map[string]interface{} {
	src := Config
	if src == nil {
		src = DefaultConfig
	}
	cp := make(map[string]interface{}, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return cp
}
