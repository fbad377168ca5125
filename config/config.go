// Copyright 2018 Bull S.A.S. Atos Technologies - Bull, Rue Jean Jaures, B.P.68, 78340, Les Clayes-sous-Bois, France.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultToolName is the tool name written in the submission script watermark
const DefaultToolName = "clusterjob"

// DefaultControlTimeout is the default timeout of scheduler control commands (submit, cancel, hold, release, status queries)
const DefaultControlTimeout = 20 * time.Second

// DefaultStatusFallbackWait is the default delay before querying the durable status source after the fast one missed
const DefaultStatusFallbackWait = 3 * time.Second

// DefaultPollInterval is the default delay between two status polls when waiting for a job to end
const DefaultPollInterval = 30 * time.Second

// DefaultQueryRate is the default maximum number of status queries per second when monitoring many jobs
const DefaultQueryRate float64 = 2

// DefaultMaxParallelMonitors is the default number of jobs monitored in parallel
const DefaultMaxParallelMonitors int = 10

// DefaultLedgerPath is the default location of the submitted jobs ledger
const DefaultLedgerPath = "~/.clusterjob/ledger.db"

// DefaultKeepBackendLogs is the default value of the KeepBackendLogs option
const DefaultKeepBackendLogs = true

// Configuration holds settings shared by backends and jobs.
//
// It is passed by value to constructors, there is no package level instance.
type Configuration struct {
	WorkingDirectory    string
	ToolName            string
	ToolVersion         string
	ControlTimeout      time.Duration
	StatusFallbackWait  time.Duration
	PollInterval        time.Duration
	Debug               bool
	DryRun              bool
	KeepBackendLogs     bool
	LedgerPath          string
	QueryRate           float64
	MaxParallelMonitors int
	DialectFiles        []string
	Clusters            map[string]ClusterConfig
}

// NewDefault returns a Configuration with every setting at its default value
func NewDefault() Configuration {
	return Configuration{
		WorkingDirectory:    ".",
		ToolName:            DefaultToolName,
		ControlTimeout:      DefaultControlTimeout,
		StatusFallbackWait:  DefaultStatusFallbackWait,
		PollInterval:        DefaultPollInterval,
		KeepBackendLogs:     DefaultKeepBackendLogs,
		LedgerPath:          DefaultLedgerPath,
		QueryRate:           DefaultQueryRate,
		MaxParallelMonitors: DefaultMaxParallelMonitors,
		Clusters:            make(map[string]ClusterConfig),
	}
}

// Cluster returns the configuration of the named cluster, an empty
// ClusterConfig is returned if the cluster is not configured
func (c Configuration) Cluster(name string) ClusterConfig {
	if cc, ok := c.Clusters[strings.ToLower(name)]; ok && cc != nil {
		return cc
	}
	return ClusterConfig{}
}

// ClusterConfig handles per-cluster settings such as default resources or
// environment lines. Values are loosely typed as they come from config files.
type ClusterConfig map[string]interface{}

// Get returns the raw value of a given configuration key
func (cc ClusterConfig) Get(name string) interface{} {
	return cc[name]
}

// GetString returns the value of the given key casted into a string.
// An empty string is returned if not found.
func (cc ClusterConfig) GetString(name string) string {
	return cast.ToString(cc[name])
}

// GetStringOrDefault returns the value of the given key casted into a string.
// The given default value is returned if not found or not a valid string.
func (cc ClusterConfig) GetStringOrDefault(name, defaultValue string) string {
	if res := cc.GetString(name); res != "" {
		return res
	}
	return defaultValue
}

// GetBool returns the value of the given key casted into a boolean.
// False is returned if not found.
func (cc ClusterConfig) GetBool(name string) bool {
	return cast.ToBool(cc[name])
}

// GetStringSlice returns the value of the given key casted into a slice of string.
// If the value is a string, it is split on commas.
func (cc ClusterConfig) GetStringSlice(name string) []string {
	val := cc[name]
	switch v := val.(type) {
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	default:
		return cast.ToStringSlice(cc[name])
	}
}
