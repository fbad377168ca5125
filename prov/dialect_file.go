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
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DialectDefinition is a dialect read from a file along with the name of
// the scheduler flavor providing its commands
type DialectDefinition struct {
	Flavor  string `yaml:"flavor"`
	Dialect `yaml:",inline"`
}

type dialectsFile struct {
	Dialects []DialectDefinition `yaml:"dialects"`
}

// LoadDialects reads dialect definitions from a YAML file.
//
// Definitions are not validated here as missing syntax elements and states
// are taken from their flavor, see Dialect.ApplyDefaults.
func LoadDialects(path string) ([]DialectDefinition, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dialects file %q", path)
	}
	return ParseDialects(b)
}

// ParseDialects parses YAML dialect definitions
func ParseDialects(b []byte) ([]DialectDefinition, error) {
	var f dialectsFile
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return nil, errors.Wrap(err, "invalid dialects definition")
	}
	for i, def := range f.Dialects {
		if def.Name == "" {
			return nil, NewConfigurationError("", "dialect #%d has no name", i)
		}
		if def.Flavor == "" {
			return nil, NewConfigurationError(def.Name, "missing scheduler flavor")
		}
		for k := range def.Flags {
			if !k.IsValid() {
				return nil, NewConfigurationError(def.Name, "unknown resource keyword %q in flags", k)
			}
		}
	}
	return f.Dialects, nil
}
