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

package executil

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Result holds the captured outputs of a command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// A Runner runs external commands and captures their outputs.
//
// The working directory is given explicitly for each run, the current
// directory of the process is never changed.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// NewRunner returns a Runner executing commands on the local host
func NewRunner() Runner {
	return localRunner{}
}

type timeoutError struct {
	cmd string
}

func (e timeoutError) Error() string {
	return "command " + e.cmd + " timed out"
}

// IsTimeout checks if the given error (or its cause) is due to a command timeout
func IsTimeout(err error) bool {
	_, ok := errors.Cause(err).(timeoutError)
	return ok
}

// CommandLine returns a printable representation of a command
func CommandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

type localRunner struct{}

func (localRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := Command(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, timeoutError{cmd: CommandLine(name, args...)}
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, errors.Wrapf(err, "command %q exited with code %d", CommandLine(name, args...), res.ExitCode)
	}
	res.ExitCode = -1
	return res, errors.Wrapf(err, "failed to run command %q", CommandLine(name, args...))
}
