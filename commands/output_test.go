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

package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/ledger"
	"github.com/ystia/clusterjob/prov"
)

func TestRenderClusters(t *testing.T) {
	t.Parallel()
	out, err := renderClusters(config.NewDefault(), false, nil)
	require.NoError(t, err)
	for _, name := range []string{"ACCRE", "EXPANSE", "slurm", "sge", "builtin"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "Commands")

	lookPath := func(file string) (string, error) {
		if strings.HasPrefix(file, "q") {
			return "", errors.Errorf("%s not found", file)
		}
		return "/usr/bin/" + file, nil
	}
	out, err = renderClusters(config.NewDefault(), true, lookPath)
	require.NoError(t, err)
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "ACCRE"):
			assert.Contains(t, line, "ok")
		case strings.Contains(line, " sge "):
			assert.Contains(t, line, "missing")
		}
	}
}

func TestRenderHistory(t *testing.T) {
	t.Parallel()
	out := renderHistory([]ledger.Record{
		{Backend: "ACCRE", JobID: "12345", Status: prov.StatusCompleted, RawStatus: "COMPLETED", SubmittedAt: time.Now().Add(-2 * time.Hour), SubDir: "/scratch/md"},
		{Backend: "EXPANSE", JobID: "678", SubmittedAt: time.Now(), SubDir: "/scratch/qm"},
	}, false)
	assert.Contains(t, out, "12345")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "/scratch/qm")
}

func TestColoredStatus(t *testing.T) {
	t.Parallel()
	for _, st := range prov.Statuses {
		assert.Equal(t, string(st), coloredStatus(false, st))
		assert.Contains(t, coloredStatus(true, st), string(st))
	}
	assert.Equal(t, "unknown", coloredError(false, "unknown"))
}
