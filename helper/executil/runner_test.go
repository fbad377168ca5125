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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerCapturesOutputsInWorkingDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	res, err := NewRunner().Run(context.Background(), dir, "sh", "-c", "pwd; echo oops >&2")
	require.NoError(t, err)
	wd, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	require.NoError(t, err)
	assert.Equal(t, wd, got)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.NotEqual(t, wd, cwd)
}

func TestRunnerNonZeroExit(t *testing.T) {
	t.Parallel()
	res, err := NewRunner().Run(context.Background(), "", "sh", "-c", "echo Invalid job id >&2; exit 3")
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "Invalid job id\n", res.Stderr)
}

func TestRunnerTimeout(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := NewRunner().Run(ctx, "", "sleep", "5")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestCommandLine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "scontrol hold 12345", CommandLine("scontrol", "hold", "12345"))
	assert.Equal(t, "squeue", CommandLine("squeue"))
}

func TestRunnerTimeoutKillsProcessGroup(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	// the background sleep keeps stdout open if only the shell is killed
	_, err := NewRunner().Run(ctx, "", "sh", "-c", "sleep 5 & sleep 5")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.True(t, time.Since(start) < 3*time.Second, "command outlived its timeout: %v", time.Since(start))
}

func TestRunnerContextAlreadyDone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner().Run(ctx, "", "sleep", "5")
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
}

func TestRunnerStartFailure(t *testing.T) {
	t.Parallel()
	res, err := NewRunner().Run(context.Background(), "", "clusterjob-no-such-command")
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}
