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
	"os/exec"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Backend is the interface implemented by every scheduler backend.
//
// Backends are stateless and safe for concurrent use: many jobs may share one.
// Submit runs the submit command from jobDir and returns the scheduler job id
// and the path of the log the scheduler will write (it may not exist yet).
// QueryField returns a job field, waiting for the given duration before
// falling back to a slower source. ResolveStatus returns the canonical and
// raw states of a job.
type Backend interface {
	Name() string
	Dialect() *Dialect
	Submit(ctx context.Context, jobDir, scriptPath string) (jobID, logPath string, err error)
	Cancel(ctx context.Context, jobID string) error
	Hold(ctx context.Context, jobID string) error
	Release(ctx context.Context, jobID string) error
	QueryField(ctx context.Context, jobID, field string, wait time.Duration) (string, error)
	ResolveStatus(ctx context.Context, jobID string) (Status, string, error)
}

// SubmitPreviewer is implemented by backends able to show the submit command
// they would run for a script, it is used for dry runs
type SubmitPreviewer interface {
	SubmitCommandLine(jobDir, scriptPath string) string
}

// ExecutableChecker is implemented by backends relying on external executables
type ExecutableChecker interface {
	RequiredExecutables() []string
}

// LookPathFunc searches an executable, exec.LookPath by default
type LookPathFunc func(file string) (string, error)

// CheckExecutables verifies that every executable required by the backend can be found.
//
// Backends that do not implement ExecutableChecker always pass.
func CheckExecutables(b Backend, lookPath LookPathFunc) error {
	checker, ok := b.(ExecutableChecker)
	if !ok {
		return nil
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	var errs error
	for _, e := range checker.RequiredExecutables() {
		if _, err := lookPath(e); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "backend %q requires executable %q", b.Name(), e))
		}
	}
	return errs
}
