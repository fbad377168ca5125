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
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError is returned for wiring or configuration bugs, such as an
// unknown resource keyword or a scheduler state missing from a state map.
// It should never be retried.
type ConfigurationError struct {
	Backend string
	Msg     string
}

// NewConfigurationError returns a ConfigurationError with a formatted message
func NewConfigurationError(backend, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Backend: backend, Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Backend == "" {
		return "configuration error: " + e.Msg
	}
	return fmt.Sprintf("configuration error for backend %q: %s", e.Backend, e.Msg)
}

// IsConfigurationError checks if an error is caused by a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := errors.Cause(err).(*ConfigurationError)
	return ok
}

// SubmissionFailedError is returned when the submit command fails or when no
// job id can be found in its output. Submissions are never retried as it may
// create duplicate jobs.
type SubmissionFailedError struct {
	Backend string
	JobDir  string
	Script  string
	Stdout  string
	Stderr  string
	Msg     string
	Err     error
}

func (e *SubmissionFailedError) Error() string {
	msg := fmt.Sprintf("backend %q failed to submit script %q from %q: %s", e.Backend, e.Script, e.JobDir, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s (stdout: %q, stderr: %q)", msg, e.Stdout, e.Stderr)
}

// Unwrap returns the underlying command error if any
func (e *SubmissionFailedError) Unwrap() error {
	return e.Err
}

// IsSubmissionFailedError checks if an error is caused by a SubmissionFailedError
func IsSubmissionFailedError(err error) bool {
	_, ok := errors.Cause(err).(*SubmissionFailedError)
	return ok
}

// ControlCommandError is returned when a cancel, hold, release or status
// query command exits with a non-zero code or times out
type ControlCommandError struct {
	Backend   string
	Operation string
	JobID     string
	Stdout    string
	Stderr    string
	Timeout   bool
	Err       error
}

func (e *ControlCommandError) Error() string {
	reason := "failed"
	if e.Timeout {
		reason = "timed out"
	}
	msg := fmt.Sprintf("backend %q: %s of job %q %s", e.Backend, e.Operation, e.JobID, reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s (stdout: %q, stderr: %q)", msg, e.Stdout, e.Stderr)
}

// Unwrap returns the underlying command error if any
func (e *ControlCommandError) Unwrap() error {
	return e.Err
}

// IsControlCommandError checks if an error is caused by a ControlCommandError
func IsControlCommandError(err error) bool {
	_, ok := errors.Cause(err).(*ControlCommandError)
	return ok
}

// JobInfoUnavailableError is returned when no status source knows the job.
// Callers may retry later, the backend does not loop.
type JobInfoUnavailableError struct {
	Backend string
	JobID   string
	Field   string
	Stdout  string
	Stderr  string
}

func (e *JobInfoUnavailableError) Error() string {
	return fmt.Sprintf("backend %q: no %q information found for job %q (stdout: %q, stderr: %q)", e.Backend, e.Field, e.JobID, e.Stdout, e.Stderr)
}

// IsJobInfoUnavailableError checks if an error is caused by a JobInfoUnavailableError
func IsJobInfoUnavailableError(err error) bool {
	_, ok := errors.Cause(err).(*JobInfoUnavailableError)
	return ok
}
