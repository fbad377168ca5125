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

package prov

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Keyword is a canonical resource keyword
type Keyword string

const (
	// CoreType selects cpu or gpu variants of core dependent flags, it is never emitted as a flag
	CoreType Keyword = "core_type"
	// Nodes is the number of nodes
	Nodes Keyword = "nodes"
	// NodeCores is the number of cores (or gpus) per node
	NodeCores Keyword = "node_cores"
	// JobName is the job name
	JobName Keyword = "job_name"
	// Partition is the partition (or queue)
	Partition Keyword = "partition"
	// MemPerCore is the memory per core, eg "4G"
	MemPerCore Keyword = "mem_per_core"
	// Walltime is the time limit using the scheduler syntax
	Walltime Keyword = "walltime"
	// Account is the account charged for the job
	Account Keyword = "account"
)

// Keywords lists every canonical resource keyword
var Keywords = []Keyword{CoreType, Nodes, NodeCores, JobName, Partition, MemPerCore, Walltime, Account}

// Core types
const (
	CPU = "cpu"
	GPU = "gpu"
)

var coreTypes = []string{CPU, GPU}

// ParseKeyword returns the canonical keyword matching s
func ParseKeyword(s string) (Keyword, error) {
	k := Keyword(strings.TrimSpace(s))
	if !k.IsValid() {
		return "", NewConfigurationError("", "unknown resource keyword %q", s)
	}
	return k, nil
}

// IsValid checks if k is a canonical keyword
func (k Keyword) IsValid() bool {
	for _, c := range Keywords {
		if c == k {
			return true
		}
	}
	return false
}

// Resource is a canonical keyword and its value
type Resource struct {
	Keyword Keyword
	Value   string
}

// Resources is an ordered set of canonical resource keywords.
//
// Order is kept as given so that generated scripts are deterministic.
type Resources []Resource

// NewResources builds Resources from alternating keyword and value strings
func NewResources(kv ...string) Resources {
	res := make(Resources, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		res = append(res, Resource{Keyword: Keyword(kv[i]), Value: kv[i+1]})
	}
	return res
}

// ParseResources parses "keyword=value" pairs
func ParseResources(pairs []string) (Resources, error) {
	res := make(Resources, 0, len(pairs))
	for _, p := range pairs {
		idx := strings.Index(p, "=")
		if idx <= 0 {
			return nil, NewConfigurationError("", "malformed resource %q, expecting keyword=value", p)
		}
		k, err := ParseKeyword(p[:idx])
		if err != nil {
			return nil, err
		}
		res = append(res, Resource{Keyword: k, Value: strings.TrimSpace(p[idx+1:])})
	}
	return res, nil
}

// Get returns the value of the first occurrence of k
func (r Resources) Get(k Keyword) (string, bool) {
	for _, res := range r {
		if res.Keyword == k {
			return res.Value, true
		}
	}
	return "", false
}

// Set returns a copy of r where k is set to v. An existing keyword keeps its position.
func (r Resources) Set(k Keyword, v string) Resources {
	out := make(Resources, len(r), len(r)+1)
	copy(out, r)
	for i := range out {
		if out[i].Keyword == k {
			out[i].Value = v
			return out
		}
	}
	return append(out, Resource{Keyword: k, Value: v})
}

// WithDefaults returns r followed by the defaults keywords not already present in r
func (r Resources) WithDefaults(defaults Resources) Resources {
	out := make(Resources, len(r), len(r)+len(defaults))
	copy(out, r)
	for _, d := range defaults {
		if _, ok := r.Get(d.Keyword); !ok {
			out = append(out, d)
		}
	}
	return out
}

// Strings returns resources as "keyword=value" pairs
func (r Resources) Strings() []string {
	out := make([]string, len(r))
	for i, res := range r {
		out[i] = string(res.Keyword) + "=" + res.Value
	}
	return out
}

// UnmarshalYAML reads resources from a YAML mapping, keeping the document order
func (r *Resources) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ms yaml.MapSlice
	if err := unmarshal(&ms); err != nil {
		return errors.Wrap(err, "resources should be a mapping of keyword: value")
	}
	res := make(Resources, 0, len(ms))
	for _, item := range ms {
		k, ok := item.Key.(string)
		if !ok {
			return errors.Errorf("invalid resource keyword %v", item.Key)
		}
		kw, err := ParseKeyword(k)
		if err != nil {
			return err
		}
		val, err := yamlScalar(item.Value)
		if err != nil {
			return errors.Wrapf(err, "invalid value for resource %q", k)
		}
		res = append(res, Resource{Keyword: kw, Value: val})
	}
	*r = res
	return nil
}

func yamlScalar(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int, int64, uint64, float64, bool:
		b, err := yaml.Marshal(t)
		return strings.TrimSpace(string(b)), err
	}
	return "", errors.Errorf("expecting a scalar value, got %T", v)
}
