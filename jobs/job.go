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

// Package jobs manages the lifecycle of scheduler jobs: script deployment,
// submission, control and monitoring.
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/log"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/script"
)

// DefaultScriptName is the name of the script deployed when no path is given
const DefaultScriptName = "submit.cmd"

// State is the local lifecycle state of a job.
//
// Scheduler side states (pending, running, ended) are never inferred
// locally, they are polled with GetState.
type State int

const (
	// StateBuilt is the state of a job whose script is only in memory
	StateBuilt State = iota
	// StateDeployed is the state of a job whose script is written on disk
	StateDeployed
	// StateSubmitted is the state of a job known by the scheduler
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateDeployed:
		return "deployed"
	case StateSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrDryRun is returned by Submit when the configuration asks for a dry run
var ErrDryRun = errors.New("dry run: script deployed but not submitted")

// Recorder keeps track of submitted jobs
type Recorder interface {
	RecordSubmission(backend, jobID, subDir, scriptPath, logPath string) error
	RecordStatus(backend, jobID string, status prov.Status, raw string) error
}

// An Option configures a Job
type Option func(*Job)

// WithRecorder records submissions and polled statuses of the job
func WithRecorder(r Recorder) Option {
	return func(j *Job) {
		j.recorder = r
	}
}

// WithConfiguration sets the configuration used by the job
func WithConfiguration(cfg config.Configuration) Option {
	return func(j *Job) {
		j.cfg = cfg
	}
}

// Job is a submission script bound to a backend.
//
// A Job is owned by its creator and is not safe for concurrent use, its
// backend may be shared by many jobs.
type Job struct {
	backend  prov.Backend
	script   string
	cfg      config.Configuration
	recorder Recorder

	state      State
	subDir     string
	scriptPath string
	jobID      string
	logPath    string
	lastStatus prov.Status
	lastRaw    string
}

// New returns a job running the given script on backend
func New(backend prov.Backend, script string, opts ...Option) *Job {
	j := &Job{backend: backend, script: script, cfg: config.NewDefault()}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Attach returns a job already submitted on backend with the given id.
//
// It allows to control and monitor jobs submitted by a previous process.
func Attach(backend prov.Backend, jobID, subDir, logPath string, opts ...Option) *Job {
	j := New(backend, "", opts...)
	j.jobID = jobID
	j.subDir = subDir
	j.logPath = logPath
	j.state = StateSubmitted
	return j
}

// Configure builds the submission script of a job from commands, environment
// and resources using the backend dialect
func Configure(backend prov.Backend, commands script.Input, env script.Environment, resources script.Input, opts ...Option) (*Job, error) {
	j := New(backend, "", opts...)
	version := j.cfg.ToolVersion
	if version == "" {
		version = "dev"
	}
	watermark := script.Watermark(j.cfg.ToolName, version, time.Now())
	s, err := script.Build(backend.Dialect(), commands, env, resources, watermark)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build submission script for backend %q", backend.Name())
	}
	j.script = s
	return j, nil
}

// Backend returns the job backend
func (j *Job) Backend() prov.Backend {
	return j.backend
}

// Script returns the submission script text
func (j *Job) Script() string {
	return j.script
}

// State returns the lifecycle state of the job
func (j *Job) State() State {
	return j.state
}

// SubDir returns the submission directory, once submitted
func (j *Job) SubDir() string {
	return j.subDir
}

// ScriptPath returns the path of the deployed script
func (j *Job) ScriptPath() string {
	return j.scriptPath
}

// JobID returns the scheduler job id, once submitted
func (j *Job) JobID() string {
	return j.jobID
}

// LogPath returns the path of the scheduler output log, once submitted
func (j *Job) LogPath() string {
	return j.logPath
}

// LastStatus returns the last polled canonical and raw states.
//
// The canonical state is the classified one, an exception state is kept as
// is. Apply prov.Status.Outcome to get the state WaitToEnd reports.
func (j *Job) LastStatus() (prov.Status, string) {
	return j.lastStatus, j.lastRaw
}

// Deploy writes the script in subDir and returns its path.
//
// With an empty scriptPath, submit.cmd is used, or submit_1.cmd, submit_2.cmd
// and so on if it exists: an existing script is never overwritten.
func (j *Job) Deploy(subDir, scriptPath string) (string, error) {
	if j.state == StateSubmitted {
		return "", errors.Errorf("job %q already submitted", j.jobID)
	}
	if err := os.MkdirAll(subDir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create submission directory %q", subDir)
	}
	var err error
	if scriptPath == "" {
		scriptPath, err = writeNewScript(subDir, j.script)
	} else {
		err = errors.Wrapf(os.WriteFile(scriptPath, []byte(j.script), 0644), "failed to write script %q", scriptPath)
	}
	if err != nil {
		return "", err
	}
	j.scriptPath = scriptPath
	j.state = StateDeployed
	log.Debugf("Submission script deployed in %q", scriptPath)
	return scriptPath, nil
}

func writeNewScript(subDir, content string) (string, error) {
	ext := filepath.Ext(DefaultScriptName)
	base := DefaultScriptName[:len(DefaultScriptName)-len(ext)]
	for i := 0; ; i++ {
		name := DefaultScriptName
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		p := filepath.Join(subDir, name)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to create script %q", p)
		}
		_, err = f.WriteString(content)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return p, errors.Wrapf(err, "failed to write script %q", p)
	}
}

// Submit deploys the script and submits it from subDir, see Deploy for scriptPath.
//
// The job id and log path are bound on success and never change afterward.
// With a dry run configuration the script is deployed and ErrDryRun is returned.
func (j *Job) Submit(ctx context.Context, subDir, scriptPath string) (string, error) {
	if j.state == StateSubmitted {
		return "", errors.Errorf("job already submitted with id %q", j.jobID)
	}
	p, err := j.Deploy(subDir, scriptPath)
	if err != nil {
		return "", err
	}
	if j.cfg.DryRun {
		cmd := p
		if previewer, ok := j.backend.(prov.SubmitPreviewer); ok {
			cmd = previewer.SubmitCommandLine(subDir, p)
		}
		log.Printf("Dry run on backend %q, would run %q from %q", j.backend.Name(), cmd, subDir)
		log.Debugf("Script %q:\n%s", p, j.script)
		return "", ErrDryRun
	}
	jobID, logPath, err := j.backend.Submit(ctx, subDir, p)
	if err != nil {
		return "", err
	}
	j.subDir = subDir
	j.jobID = jobID
	j.logPath = logPath
	j.state = StateSubmitted
	log.Printf("Job %q submitted on backend %q", jobID, j.backend.Name())
	if j.recorder != nil {
		if err := j.recorder.RecordSubmission(j.backend.Name(), jobID, subDir, p, logPath); err != nil {
			log.Warnf("failed to record submission of job %q: %v", jobID, err)
		}
	}
	return jobID, nil
}

func (j *Job) checkSubmitted(op string) error {
	if j.state != StateSubmitted {
		return errors.Errorf("can't %s a job that is not submitted (state: %s)", op, j.state)
	}
	return nil
}

// Kill requests the cancellation of the job. It does not wait for the job to end.
func (j *Job) Kill(ctx context.Context) error {
	if err := j.checkSubmitted("kill"); err != nil {
		return err
	}
	return j.backend.Cancel(ctx, j.jobID)
}

// Hold prevents the pending job from starting
func (j *Job) Hold(ctx context.Context) error {
	if err := j.checkSubmitted("hold"); err != nil {
		return err
	}
	return j.backend.Hold(ctx, j.jobID)
}

// Release allows a held job to start
func (j *Job) Release(ctx context.Context) error {
	if err := j.checkSubmitted("release"); err != nil {
		return err
	}
	return j.backend.Release(ctx, j.jobID)
}

// GetState polls the scheduler and returns the canonical and raw job states
func (j *Job) GetState(ctx context.Context) (prov.Status, string, error) {
	if err := j.checkSubmitted("poll"); err != nil {
		return "", "", err
	}
	st, raw, err := j.backend.ResolveStatus(ctx, j.jobID)
	if err != nil {
		return "", raw, err
	}
	if st != j.lastStatus || raw != j.lastRaw {
		log.Debugf("Job %q on backend %q is now %s (%s)", j.jobID, j.backend.Name(), st, raw)
		if j.recorder != nil {
			if err := j.recorder.RecordStatus(j.backend.Name(), j.jobID, st, raw); err != nil {
				log.Warnf("failed to record status of job %q: %v", j.jobID, err)
			}
		}
	}
	j.lastStatus, j.lastRaw = st, raw
	return st, raw, nil
}

// WaitToEnd polls the job state every interval until a terminal state is
// observed. Exception states are reported as errors, the raw state is kept.
func (j *Job) WaitToEnd(ctx context.Context, interval time.Duration) (prov.Status, string, error) {
	return j.waitToEnd(ctx, interval, nil)
}

func (j *Job) waitToEnd(ctx context.Context, interval time.Duration, beforePoll func(context.Context) error) (prov.Status, string, error) {
	if err := j.checkSubmitted("wait for"); err != nil {
		return "", "", err
	}
	if interval <= 0 {
		interval = j.cfg.PollInterval
	}
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if beforePoll != nil {
			if err := beforePoll(ctx); err != nil {
				return "", "", errors.Wrapf(err, "stopped waiting for job %q", j.jobID)
			}
		}
		st, raw, err := j.GetState(ctx)
		if err != nil {
			return "", raw, err
		}
		if st.IsTerminal() {
			return st.Outcome(), raw, nil
		}
		select {
		case <-ctx.Done():
			return "", raw, errors.Wrapf(ctx.Err(), "stopped waiting for job %q", j.jobID)
		case <-ticker.C:
		}
	}
}
