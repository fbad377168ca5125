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

//go:build !windows
// +build !windows

package executil

import (
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/ystia/clusterjob/log"
)

// killWaitDelay bounds the time Wait spends on output pipes still held by
// orphaned children once the process group was killed
const killWaitDelay = time.Second

// Cmd is a scheduler command run in its own process group.
//
// When its context is done the whole group is killed, so that children
// spawned by scheduler wrapper scripts do not outlive the command timeout.
type Cmd struct {
	*exec.Cmd
}

// Command returns a Cmd running name with the given arguments in a new
// process group bound to ctx
func Command(ctx context.Context, name string, arg ...string) *Cmd {
	log.Debugf("Running scheduler command %q", CommandLine(name, arg...))
	c := exec.CommandContext(ctx, name, arg...)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Cancel is only called by exec once the process is started
	c.Cancel = func() error {
		err := syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		if err != nil && err != syscall.ESRCH {
			log.Warnf("failed to kill process group of %q: %v", c.Path, err)
		}
		return err
	}
	c.WaitDelay = killWaitDelay
	return &Cmd{Cmd: c}
}
