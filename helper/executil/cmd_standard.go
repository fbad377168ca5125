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

//go:build windows
// +build windows

package executil

import (
	"context"
	"os/exec"
	"time"

	"github.com/ystia/clusterjob/log"
)

// Cmd represents a scheduler command being prepared or run.
//
// Process groups are not available on this platform, only the command
// process is killed when the context is done.
type Cmd struct {
	*exec.Cmd
}

// Command returns the Cmd struct to execute the named scheduler command with
// the given arguments.
func Command(ctx context.Context, name string, arg ...string) *Cmd {
	log.Debugf("Running scheduler command %q", CommandLine(name, arg...))
	c := exec.CommandContext(ctx, name, arg...)
	c.WaitDelay = time.Second
	return &Cmd{Cmd: c}
}
