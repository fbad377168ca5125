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
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainBackend struct{}

func (plainBackend) Name() string                                    { return "plain" }
func (plainBackend) Dialect() *Dialect                               { return testDialect() }
func (plainBackend) Cancel(ctx context.Context, jobID string) error  { return nil }
func (plainBackend) Hold(ctx context.Context, jobID string) error    { return nil }
func (plainBackend) Release(ctx context.Context, jobID string) error { return nil }
func (plainBackend) Submit(ctx context.Context, jobDir, scriptPath string) (string, string, error) {
	return "1", "", nil
}
func (plainBackend) QueryField(ctx context.Context, jobID, field string, wait time.Duration) (string, error) {
	return "", nil
}
func (plainBackend) ResolveStatus(ctx context.Context, jobID string) (Status, string, error) {
	return StatusCompleted, "COMPLETED", nil
}

type commandBackend struct {
	plainBackend
}

func (commandBackend) RequiredExecutables() []string {
	return []string{"sbatch", "squeue", "sacct"}
}

func TestCheckExecutables(t *testing.T) {
	t.Parallel()
	assert.NoError(t, CheckExecutables(plainBackend{}, nil))

	found := func(file string) (string, error) { return "/usr/bin/" + file, nil }
	assert.NoError(t, CheckExecutables(commandBackend{}, found))

	missingAccounting := func(file string) (string, error) {
		if file == "sacct" || file == "squeue" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + file, nil
	}
	err := CheckExecutables(commandBackend{}, missingAccounting)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sacct")
	assert.Contains(t, err.Error(), "squeue")
	assert.NotContains(t, err.Error(), "sbatch")
}

func TestErrorsMessages(t *testing.T) {
	t.Parallel()
	sub := &SubmissionFailedError{Backend: "ACCRE", JobDir: "/tmp/job", Script: "submit.cmd", Stderr: "sbatch: error: invalid partition", Msg: "submit command failed", Err: errors.New("exit status 1")}
	assert.Contains(t, sub.Error(), "ACCRE")
	assert.Contains(t, sub.Error(), "invalid partition")
	assert.True(t, IsSubmissionFailedError(errors.Wrap(sub, "context")))
	assert.False(t, IsControlCommandError(sub))

	ctrl := &ControlCommandError{Backend: "ACCRE", Operation: "cancel", JobID: "42", Timeout: true}
	assert.Contains(t, ctrl.Error(), "cancel of job \"42\" timed out")
	assert.True(t, IsControlCommandError(ctrl))

	info := &JobInfoUnavailableError{Backend: "ACCRE", JobID: "42", Field: "State"}
	assert.Contains(t, info.Error(), "\"42\"")
	assert.True(t, IsJobInfoUnavailableError(info))
	assert.False(t, IsConfigurationError(info))
}
