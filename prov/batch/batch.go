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

// Package batch implements a scheduler backend driven by command line tools.
//
// Scheduler specifics (commands, job id extraction, log naming, status
// sources) are described by a Flavor, see packages slurm and sge.
package batch

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/pkg/errors"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/collections"
	"github.com/ystia/clusterjob/helper/executil"
	"github.com/ystia/clusterjob/helper/metricsutil"
	"github.com/ystia/clusterjob/log"
	"github.com/ystia/clusterjob/prov"
)

// SourceSpec describes a job information source command
type SourceSpec struct {
	Name    string
	Command string
	// Args returns the command arguments to query field for jobID
	Args func(jobID, field string) []string
	// Parse extracts the data rows of field from the command output
	Parse func(stdout, jobID, field string) ([]string, error)
}

// Flavor describes the command line tools of a scheduler
type Flavor struct {
	Name string
	// SubmitCommand is the submit command and its fixed arguments, the script path is appended
	SubmitCommand []string
	// JobIDPattern captures the job id in the submit output, and the job
	// name in an optional second group
	JobIDPattern   *regexp.Regexp
	CancelCommand  []string
	HoldCommand    []string
	ReleaseCommand []string
	// LogPath returns the path of the output log the scheduler writes for a job,
	// jobName is empty when the submit output does not report it
	LogPath func(jobDir, scriptPath, jobID, jobName string) string
	// StatusField is the field holding the raw job state
	StatusField string
	// Sources are ordered from the fastest to the most durable
	Sources []SourceSpec
}

func (f Flavor) validate() error {
	switch {
	case len(f.SubmitCommand) == 0:
		return errors.Errorf("flavor %q: missing submit command", f.Name)
	case f.JobIDPattern == nil || f.JobIDPattern.NumSubexp() < 1:
		return errors.Errorf("flavor %q: job id pattern should have a capturing group", f.Name)
	case len(f.CancelCommand) == 0 || len(f.HoldCommand) == 0 || len(f.ReleaseCommand) == 0:
		return errors.Errorf("flavor %q: missing control command", f.Name)
	case f.LogPath == nil:
		return errors.Errorf("flavor %q: missing log path naming", f.Name)
	case f.StatusField == "" || len(f.Sources) == 0:
		return errors.Errorf("flavor %q: missing status source", f.Name)
	}
	return nil
}

// Backend is a prov.Backend running scheduler commands on the local host
type Backend struct {
	name     string
	dialect  *prov.Dialect
	flavor   Flavor
	runner   executil.Runner
	cfg      config.Configuration
	resolver *prov.Resolver
}

// New returns a Backend named after the dialect using the flavor commands.
//
// A nil runner runs commands on the local host.
func New(dialect *prov.Dialect, flavor Flavor, runner executil.Runner, cfg config.Configuration) (*Backend, error) {
	if dialect == nil {
		return nil, prov.NewConfigurationError(flavor.Name, "missing dialect")
	}
	if err := dialect.Validate(); err != nil {
		return nil, err
	}
	if err := flavor.validate(); err != nil {
		return nil, prov.NewConfigurationError(dialect.Name, "%v", err)
	}
	if runner == nil {
		runner = executil.NewRunner()
	}
	if cfg.ControlTimeout <= 0 {
		cfg.ControlTimeout = config.DefaultControlTimeout
	}
	b := &Backend{name: dialect.Name, dialect: dialect, flavor: flavor, runner: runner, cfg: cfg}
	b.resolver = &prov.Resolver{Backend: b.name}
	for _, spec := range flavor.Sources {
		b.resolver.Sources = append(b.resolver.Sources, &commandSource{backend: b, spec: spec})
	}
	return b, nil
}

// Name returns the backend name
func (b *Backend) Name() string {
	return b.name
}

// Dialect returns the backend resource dialect
func (b *Backend) Dialect() *prov.Dialect {
	return b.dialect
}

// Flavor returns the name of the scheduler flavor
func (b *Backend) Flavor() string {
	return b.flavor.Name
}

// SubmitCommandLine returns the submit command run for the given script
func (b *Backend) SubmitCommandLine(jobDir, scriptPath string) string {
	name, args := b.submitCommand(absPath(scriptPath))
	return executil.CommandLine(name, args...)
}

// RequiredExecutables returns the scheduler commands used by this backend
func (b *Backend) RequiredExecutables() []string {
	var res []string
	add := func(cmd string) {
		if cmd != "" && !collections.ContainsString(res, cmd) {
			res = append(res, cmd)
		}
	}
	for _, c := range [][]string{b.flavor.SubmitCommand, b.flavor.CancelCommand, b.flavor.HoldCommand, b.flavor.ReleaseCommand} {
		add(c[0])
	}
	for _, s := range b.flavor.Sources {
		add(s.Command)
	}
	return res
}

// Submit runs the submit command from jobDir and extracts the job id from its output
func (b *Backend) Submit(ctx context.Context, jobDir, scriptPath string) (string, string, error) {
	defer metrics.MeasureSince(metricsutil.Key("backend", b.name, "submit", "duration"), time.Now())
	dir := absPath(jobDir)
	script := absPath(scriptPath)
	name, args := b.submitCommand(script)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ControlTimeout)
	defer cancel()
	res, err := b.runner.Run(ctx, dir, name, args...)
	if err != nil {
		metrics.IncrCounter(metricsutil.Key("backend", b.name, "submit", "failures"), 1)
		msg := "submit command failed"
		if executil.IsTimeout(err) {
			msg = "submit command timed out"
		}
		return "", "", &prov.SubmissionFailedError{Backend: b.name, JobDir: dir, Script: script, Stdout: res.Stdout, Stderr: res.Stderr, Msg: msg, Err: err}
	}
	match := b.flavor.JobIDPattern.FindStringSubmatch(res.Stdout)
	if len(match) < 2 || match[1] == "" {
		metrics.IncrCounter(metricsutil.Key("backend", b.name, "submit", "failures"), 1)
		return "", "", &prov.SubmissionFailedError{Backend: b.name, JobDir: dir, Script: script, Stdout: res.Stdout, Stderr: res.Stderr,
			Msg: "no job id matching " + b.flavor.JobIDPattern.String() + " in submit output"}
	}
	jobID := match[1]
	var jobName string
	if len(match) > 2 {
		jobName = match[2]
	}
	metrics.IncrCounter(metricsutil.Key("backend", b.name, "submit", "successes"), 1)
	log.Debugf("Script %q submitted to backend %q with job id %q", script, b.name, jobID)
	return jobID, b.flavor.LogPath(dir, script, jobID, jobName), nil
}

// Cancel requests the cancellation of a job, it does not wait for the job to end
func (b *Backend) Cancel(ctx context.Context, jobID string) error {
	return b.control(ctx, "cancel", b.flavor.CancelCommand, jobID)
}

// Hold prevents a pending job from starting
func (b *Backend) Hold(ctx context.Context, jobID string) error {
	return b.control(ctx, "hold", b.flavor.HoldCommand, jobID)
}

// Release allows a held job to start
func (b *Backend) Release(ctx context.Context, jobID string) error {
	return b.control(ctx, "release", b.flavor.ReleaseCommand, jobID)
}

// QueryField returns a job field from the first status source knowing the job
func (b *Backend) QueryField(ctx context.Context, jobID, field string, wait time.Duration) (string, error) {
	return b.resolver.QueryField(ctx, jobID, field, wait)
}

// ResolveStatus returns the canonical and raw state of a job
func (b *Backend) ResolveStatus(ctx context.Context, jobID string) (prov.Status, string, error) {
	return b.resolver.ResolveStatus(ctx, jobID, b.flavor.StatusField, b.dialect.States, b.cfg.StatusFallbackWait)
}

func (b *Backend) submitCommand(script string) (string, []string) {
	args := make([]string, 0, len(b.flavor.SubmitCommand))
	args = append(args, b.flavor.SubmitCommand[1:]...)
	return b.flavor.SubmitCommand[0], append(args, script)
}

func (b *Backend) control(ctx context.Context, op string, command []string, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.ControlTimeout)
	defer cancel()
	args := make([]string, 0, len(command))
	args = append(args, command[1:]...)
	args = append(args, jobID)
	res, err := b.runner.Run(ctx, "", command[0], args...)
	if err != nil {
		metrics.IncrCounter(metricsutil.Key("backend", b.name, "control", op, "failures"), 1)
		return &prov.ControlCommandError{Backend: b.name, Operation: op, JobID: jobID, Stdout: res.Stdout, Stderr: res.Stderr, Timeout: executil.IsTimeout(err), Err: err}
	}
	log.Debugf("Job %q: %s requested on backend %q", jobID, op, b.name)
	return nil
}

type commandSource struct {
	backend *Backend
	spec    SourceSpec
}

func (s *commandSource) Name() string {
	return s.spec.Name
}

func (s *commandSource) Query(ctx context.Context, jobID, field string) (prov.SourceResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.backend.cfg.ControlTimeout)
	defer cancel()
	res, err := s.backend.runner.Run(ctx, "", s.spec.Command, s.spec.Args(jobID, field)...)
	out := prov.SourceResult{Stdout: res.Stdout, Stderr: res.Stderr}
	if err != nil {
		if executil.IsTimeout(err) {
			return out, &prov.ControlCommandError{Backend: s.backend.name, Operation: "query " + s.spec.Name, JobID: jobID,
				Stdout: res.Stdout, Stderr: res.Stderr, Timeout: true, Err: err}
		}
		return out, err
	}
	out.Rows, err = s.spec.Parse(res.Stdout, jobID, field)
	if err != nil {
		return out, prov.NewConfigurationError(s.backend.name, "failed to read %q of job %q from %s output: %v", field, jobID, s.spec.Name, err)
	}
	return out, nil
}

// SplitLines returns the non-blank lines of a command output
func SplitLines(output string) []string {
	var lines []string
	for _, l := range strings.Split(strings.Replace(output, "\r\n", "\n", -1), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
