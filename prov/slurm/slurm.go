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

// Package slurm provides the Slurm scheduler flavor and its builtin cluster dialects
package slurm

import (
	"path/filepath"
	"regexp"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/executil"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/prov/batch"
)

// FlavorName is the name of the Slurm flavor in dialect files
const FlavorName = "slurm"

var jobIDPattern = regexp.MustCompile(`Submitted batch job ([0-9]+)`)

// Flavor returns the Slurm command line tools description.
//
// squeue only knows about jobs still in the queue, sacct knows about ended
// jobs but lags behind the scheduler.
func Flavor() batch.Flavor {
	return batch.Flavor{
		Name:           FlavorName,
		SubmitCommand:  []string{"sbatch"},
		JobIDPattern:   jobIDPattern,
		CancelCommand:  []string{"scancel"},
		HoldCommand:    []string{"scontrol", "hold"},
		ReleaseCommand: []string{"scontrol", "release"},
		LogPath:        logPath,
		StatusField:    "State",
		Sources: []batch.SourceSpec{
			{
				Name:    "squeue",
				Command: "squeue",
				Args: func(jobID, field string) []string {
					return []string{"-j", jobID, "-O", field}
				},
				Parse: dataRows(1),
			},
			{
				Name:    "sacct",
				Command: "sacct",
				Args: func(jobID, field string) []string {
					return []string{"-j", jobID, "-o", field}
				},
				Parse: dataRows(2),
			},
		},
	}
}

// sbatch writes slurm-<job id>.out in the submission directory
func logPath(jobDir, scriptPath, jobID, jobName string) string {
	return filepath.Join(jobDir, "slurm-"+jobID+".out")
}

// dataRows skips the given number of header lines (squeue prints a title
// line, sacct a title line and a separator line)
func dataRows(headerLines int) func(stdout, jobID, field string) ([]string, error) {
	return func(stdout, jobID, field string) ([]string, error) {
		lines := batch.SplitLines(stdout)
		if len(lines) <= headerLines {
			return nil, nil
		}
		return lines[headerLines:], nil
	}
}

// New returns a Slurm backend for the given dialect
func New(d *prov.Dialect, runner executil.Runner, cfg config.Configuration) (*batch.Backend, error) {
	return batch.New(d, Flavor(), runner, cfg)
}

// NewACCRE returns a backend for the ACCRE cluster
func NewACCRE(runner executil.Runner, cfg config.Configuration) (*batch.Backend, error) {
	return New(ACCRE(), runner, cfg)
}

// NewExpanse returns a backend for the EXPANSE cluster
func NewExpanse(runner executil.Runner, cfg config.Configuration) (*batch.Backend, error) {
	return New(Expanse(), runner, cfg)
}
