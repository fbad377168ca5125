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
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ystia/clusterjob/helper/collections"
	"github.com/ystia/clusterjob/helper/sizeutil"
)

// LineSeparator ends every line of a generated script
const LineSeparator = "\n"

// DefaultShebang is the first line of generated scripts
const DefaultShebang = "#!/bin/bash"

// coreDependent keywords can't be translated without a core_type
var coreDependent = []Keyword{NodeCores, MemPerCore}

// FlagName is the scheduler flag name for a canonical keyword.
//
// Names include everything preceding the value, for instance "time=" or "l h_rt=".
// ByCoreType takes precedence over Name when a core type is given.
type FlagName struct {
	Name       string            `yaml:"name,omitempty"`
	ByCoreType map[string]string `yaml:"by_core_type,omitempty"`
}

// UnmarshalYAML accepts either a plain flag name or a mapping of core type to flag name
func (f *FlagName) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		*f = FlagName{Name: name}
		return nil
	}
	byCore := make(map[string]string)
	if err := unmarshal(&byCore); err != nil {
		return errors.Wrap(err, "flag should be either a name or a mapping of core type to name")
	}
	*f = FlagName{ByCoreType: byCore}
	return nil
}

func (f FlagName) resolve(coreType string) string {
	if n, ok := f.ByCoreType[coreType]; ok {
		return n
	}
	return f.Name
}

// Flag is a translated resource: a scheduler flag name and its value
type Flag struct {
	Name  string
	Value string
}

// Directives is the ordered result of a translation
type Directives []Flag

// EnvSetting is an environment setup split in a head, written before the
// commands, and an optional tail, written after them
type EnvSetting struct {
	Head string `yaml:"head"`
	Tail string `yaml:"tail,omitempty"`
}

// Dialect maps canonical resource keywords and states to a scheduler syntax
type Dialect struct {
	Name string `yaml:"name"`
	// Shebang is the first line of the resources section
	Shebang string `yaml:"shebang,omitempty"`
	// Directive starts each resource line, eg "#SBATCH"
	Directive string `yaml:"directive,omitempty"`
	// FlagPrefix is written between the directive and the flag name, eg "--"
	FlagPrefix string               `yaml:"flag_prefix,omitempty"`
	Flags      map[Keyword]FlagName `yaml:"flags"`
	// PartitionAliases translates a canonical partition name per core type
	PartitionAliases map[string]map[string]string `yaml:"partition_aliases,omitempty"`
	// MemoryPerNode is set when the scheduler expects the memory of the whole
	// node: mem_per_core is then multiplied by node_cores
	MemoryPerNode   bool                             `yaml:"memory_per_node,omitempty"`
	States          StateMap                         `yaml:"states,omitempty"`
	EnvPresets      map[string]map[string]EnvSetting `yaml:"env_presets,omitempty"`
	ResourcePresets map[string]Resources             `yaml:"resource_presets,omitempty"`
}

// Validate checks the dialect definition
func (d *Dialect) Validate() error {
	if d.Name == "" {
		return NewConfigurationError("", "dialect without name")
	}
	if d.Directive == "" {
		return NewConfigurationError(d.Name, "missing resource directive")
	}
	for k := range d.Flags {
		if !k.IsValid() {
			return NewConfigurationError(d.Name, "unknown resource keyword %q in flags", k)
		}
	}
	for partition, byCore := range d.PartitionAliases {
		for c := range byCore {
			if !collections.ContainsString(coreTypes, c) {
				return NewConfigurationError(d.Name, "partition alias %q uses unknown core type %q", partition, c)
			}
		}
	}
	return d.States.Validate(d.Name)
}

// ApplyDefaults fills empty syntax elements and states from base
func (d *Dialect) ApplyDefaults(base *Dialect) {
	if d.Shebang == "" {
		d.Shebang = base.Shebang
	}
	if d.Directive == "" {
		d.Directive = base.Directive
	}
	if d.FlagPrefix == "" {
		d.FlagPrefix = base.FlagPrefix
	}
	if len(d.States) == 0 {
		d.States = base.States
	}
	if d.Flags == nil {
		d.Flags = base.Flags
	}
}

// Translate converts canonical resources into scheduler flags.
//
// core_type is never emitted, it selects the variant of core dependent flags.
// The output keeps the input order.
func (d *Dialect) Translate(res Resources) (Directives, error) {
	coreType, hasCoreType := res.Get(CoreType)
	if hasCoreType && !collections.ContainsString(coreTypes, coreType) {
		return nil, NewConfigurationError(d.Name, "invalid core_type %q, expecting one of %v", coreType, coreTypes)
	}
	out := make(Directives, 0, len(res))
	for _, r := range res {
		if !r.Keyword.IsValid() {
			return nil, NewConfigurationError(d.Name, "unknown resource keyword %q", r.Keyword)
		}
		if r.Keyword == CoreType {
			continue
		}
		if !hasCoreType && isCoreDependent(r.Keyword) {
			return nil, NewConfigurationError(d.Name, "resource %q requires a core_type", r.Keyword)
		}
		fn, ok := d.Flags[r.Keyword]
		if !ok {
			return nil, NewConfigurationError(d.Name, "resource %q is not supported", r.Keyword)
		}
		name := fn.resolve(coreType)
		if name == "" {
			return nil, NewConfigurationError(d.Name, "resource %q is not supported for core_type %q", r.Keyword, coreType)
		}
		value, err := d.translateValue(r, res, coreType)
		if err != nil {
			return nil, err
		}
		out = append(out, Flag{Name: name, Value: value})
	}
	return out, nil
}

func (d *Dialect) translateValue(r Resource, res Resources, coreType string) (string, error) {
	switch r.Keyword {
	case Nodes, NodeCores:
		if _, err := positiveInt(r.Value); err != nil {
			return "", NewConfigurationError(d.Name, "resource %q: %v", r.Keyword, err)
		}
	case Partition:
		if alias, ok := d.PartitionAliases[r.Value][coreType]; ok {
			return alias, nil
		}
	case MemPerCore:
		if !d.MemoryPerNode {
			break
		}
		cores, ok := res.Get(NodeCores)
		if !ok {
			return "", NewConfigurationError(d.Name, "resource %q requires node_cores to compute the memory per node", r.Keyword)
		}
		n, err := positiveInt(cores)
		if err != nil {
			return "", NewConfigurationError(d.Name, "resource %q: %v", NodeCores, err)
		}
		mem, err := sizeutil.MultiplyMemory(r.Value, n)
		if err != nil {
			return "", NewConfigurationError(d.Name, "resource %q: %v", r.Keyword, err)
		}
		return mem, nil
	}
	return r.Value, nil
}

// Format renders directives as a resources section: the shebang line followed by one directive line per flag.
//
// No sorting nor deduplication is done.
func (d *Dialect) Format(dirs Directives) string {
	var b strings.Builder
	shebang := d.Shebang
	if shebang == "" {
		shebang = DefaultShebang
	}
	b.WriteString(shebang + LineSeparator)
	for _, f := range dirs {
		b.WriteString(d.Directive + " " + d.FlagPrefix + f.Name + f.Value + LineSeparator)
	}
	return b.String()
}

// Header translates and formats resources
func (d *Dialect) Header(res Resources) (string, error) {
	dirs, err := d.Translate(res)
	if err != nil {
		return "", err
	}
	return d.Format(dirs), nil
}

// EnvPreset returns the environment setup named preset for the given core type
func (d *Dialect) EnvPreset(preset, coreType string) (EnvSetting, error) {
	byCore, ok := d.EnvPresets[preset]
	if !ok {
		return EnvSetting{}, NewConfigurationError(d.Name, "unknown environment preset %q", preset)
	}
	env, ok := byCore[coreType]
	if !ok {
		return EnvSetting{}, NewConfigurationError(d.Name, "environment preset %q is not available for core_type %q", preset, coreType)
	}
	return env, nil
}

// ResourcePreset returns the resources named preset
func (d *Dialect) ResourcePreset(preset string) (Resources, error) {
	res, ok := d.ResourcePresets[preset]
	if !ok {
		return nil, NewConfigurationError(d.Name, "unknown resource preset %q", preset)
	}
	return res, nil
}

func isCoreDependent(k Keyword) bool {
	for _, c := range coreDependent {
		if c == k {
			return true
		}
	}
	return false
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, errors.Errorf("expecting a positive integer, got %q", s)
	}
	return n, nil
}
