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

// Package script builds scheduler submission scripts.
//
// A script is the concatenation of a resources section, a watermark comment,
// an environment section and a commands section, in this order. An optional
// environment tail is written after the commands.
package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/ystia/clusterjob/prov"
)

// Kind tells which form an Input holds
type Kind int

const (
	// KindNone is the kind of an unset Input
	KindNone Kind = iota
	// KindText is a single block of text used as-is
	KindText
	// KindLines is a sequence of lines
	KindLines
	// KindMapping is a set of canonical resources
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLines:
		return "lines"
	case KindMapping:
		return "mapping"
	}
	return "none"
}

// Input is a script section given either as text, as lines or, for
// resources, as canonical keywords
type Input struct {
	kind    Kind
	text    string
	lines   []string
	mapping prov.Resources
}

// Text returns an Input used as-is
func Text(s string) Input {
	return Input{kind: KindText, text: s}
}

// Lines returns an Input joining the given lines
func Lines(lines ...string) Input {
	return Input{kind: KindLines, lines: lines}
}

// Mapping returns a resources Input translated by the backend dialect
func Mapping(res prov.Resources) Input {
	return Input{kind: KindMapping, mapping: res}
}

// Kind returns the form of the input
func (in Input) Kind() Kind {
	return in.kind
}

// IsSet returns false for the zero Input
func (in Input) IsSet() bool {
	return in.kind != KindNone
}

// Resources returns the canonical resources of a mapping input
func (in Input) Resources() prov.Resources {
	return in.mapping
}

// render returns the section text ending with a single line separator
func (in Input) render(section string) (string, error) {
	switch in.kind {
	case KindText:
		return terminate(in.text), nil
	case KindLines:
		return strings.Join(in.lines, prov.LineSeparator) + prov.LineSeparator, nil
	case KindNone:
		return "", nil
	}
	return "", prov.NewConfigurationError("", "%s section can't be given as a %s", section, in.kind)
}

// Environment is the environment setup of a script
type Environment struct {
	Head Input
	// Tail is written after the commands, for instance to remove scratch directories
	Tail Input
}

// Env returns an Environment without tail
func Env(in Input) Environment {
	return Environment{Head: in}
}

// EnvFromPresets combines environment presets. Heads are written in order,
// tails in reverse order.
func EnvFromPresets(settings ...prov.EnvSetting) Environment {
	var heads, tails []string
	for i := range settings {
		if settings[i].Head != "" {
			heads = append(heads, strings.TrimSuffix(settings[i].Head, prov.LineSeparator))
		}
		if t := settings[len(settings)-1-i].Tail; t != "" {
			tails = append(tails, strings.TrimSuffix(t, prov.LineSeparator))
		}
	}
	var env Environment
	if len(heads) > 0 {
		env.Head = Lines(heads...)
	}
	if len(tails) > 0 {
		env.Tail = Lines(tails...)
	}
	return env
}

// Watermark returns the comment line identifying the tool that generated a script
func Watermark(tool, version string, t time.Time) string {
	if v, err := semver.ParseTolerant(version); err == nil {
		version = v.String()
	}
	return fmt.Sprintf("# Script generated by %s %s on %s%s", tool, strings.TrimSpace(version), t.Format("2006-01-02 15:04:05"), prov.LineSeparator)
}

// Build returns a submission script.
//
// Resources given as a mapping are translated and formatted by the dialect,
// text resources are used verbatim. Commands are required.
func Build(d *prov.Dialect, commands Input, env Environment, resources Input, watermark string) (string, error) {
	if !commands.IsSet() {
		return "", prov.NewConfigurationError(dialectName(d), "no command to run")
	}
	var resSection string
	switch resources.Kind() {
	case KindMapping, KindNone:
		if d == nil {
			return "", prov.NewConfigurationError("", "a dialect is required to format resources")
		}
		var err error
		resSection, err = d.Header(resources.Resources())
		if err != nil {
			return "", err
		}
	default:
		var err error
		resSection, err = resources.render("resources")
		if err != nil {
			return "", err
		}
	}
	envSection, err := env.Head.render("environment")
	if err != nil {
		return "", err
	}
	cmdSection, err := commands.render("commands")
	if err != nil {
		return "", err
	}
	tailSection, err := env.Tail.render("environment tail")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(resSection)
	if watermark != "" {
		b.WriteString(terminate(watermark))
	}
	b.WriteString(envSection)
	b.WriteString(cmdSection)
	b.WriteString(tailSection)
	return b.String(), nil
}

func terminate(s string) string {
	if strings.HasSuffix(s, prov.LineSeparator) {
		return s
	}
	return s + prov.LineSeparator
}

func dialectName(d *prov.Dialect) string {
	if d == nil {
		return ""
	}
	return d.Name
}
