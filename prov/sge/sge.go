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

// Package sge provides the Grid Engine scheduler flavor
package sge

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/collections"
	"github.com/ystia/clusterjob/helper/executil"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/prov/batch"
)

// FlavorName is the name of the Grid Engine flavor in dialect files
const FlavorName = "sge"

// StateField is the job field holding the raw state
const StateField = "State"

var jobIDPattern = regexp.MustCompile(`Your job(?:-array)? ([0-9]+)(?:\.\S+)?(?: \("([^"]*)"\))?`)

// Flavor returns the Grid Engine command line tools description.
//
// qstat lists queued and running jobs, qacct reads the accounting file
// once jobs are over.
func Flavor() batch.Flavor {
	return batch.Flavor{
		Name:           FlavorName,
		SubmitCommand:  []string{"qsub", "-cwd"},
		JobIDPattern:   jobIDPattern,
		CancelCommand:  []string{"qdel"},
		HoldCommand:    []string{"qhold"},
		ReleaseCommand: []string{"qrls"},
		LogPath:        logPath,
		StatusField:    StateField,
		Sources: []batch.SourceSpec{
			{
				Name:    "qstat",
				Command: "qstat",
				Args: func(jobID, field string) []string {
					return []string{"-u", "*"}
				},
				Parse: parseQstat,
			},
			{
				Name:    "qacct",
				Command: "qacct",
				Args: func(jobID, field string) []string {
					return []string{"-j", jobID}
				},
				Parse: parseQacct,
			},
		},
	}
}

// qsub -cwd writes <job name>.o<job id> in the submission directory, the job
// name defaults to the script name
func logPath(jobDir, scriptPath, jobID, jobName string) string {
	if jobName == "" {
		jobName = filepath.Base(scriptPath)
	}
	return filepath.Join(jobDir, jobName+".o"+jobID)
}

// parseQstat returns the field column of the job rows in a qstat table.
//
// Columns are split on blanks, so only the leading columns (up to the state)
// are reliable: the queue column is empty for pending jobs.
func parseQstat(stdout, jobID, field string) ([]string, error) {
	lines := batch.SplitLines(stdout)
	if len(lines) < 3 {
		return nil, nil
	}
	header := strings.Fields(strings.ToLower(lines[0]))
	idCol := collections.IndexOfString(header, "job-id")
	col := collections.IndexOfString(header, strings.ToLower(field))
	if idCol < 0 || col < 0 {
		return nil, prov.NewConfigurationError("", "qstat output has no %q column", field)
	}
	var rows []string
	for _, l := range lines[2:] {
		fields := strings.Fields(l)
		if len(fields) > col && len(fields) > idCol && fields[idCol] == jobID {
			rows = append(rows, fields[col])
		}
	}
	return rows, nil
}

// parseQacct returns field from each accounting record of qacct -j.
//
// The State field is derived from the failed and exit_status fields as
// accounting has no job state.
func parseQacct(stdout, jobID, field string) ([]string, error) {
	var rows []string
	for _, rec := range qacctRecords(stdout) {
		if strings.EqualFold(field, StateField) {
			rows = append(rows, accountingState(rec))
			continue
		}
		if v, ok := rec[strings.ToLower(field)]; ok {
			rows = append(rows, v)
		}
	}
	return rows, nil
}

func qacctRecords(stdout string) []map[string]string {
	var records []map[string]string
	var cur map[string]string
	for _, l := range batch.SplitLines(stdout) {
		if strings.HasPrefix(l, "====") {
			cur = make(map[string]string)
			records = append(records, cur)
			continue
		}
		if cur == nil {
			continue
		}
		parts := strings.SplitN(strings.TrimSpace(l), " ", 2)
		if len(parts) == 2 {
			cur[strings.ToLower(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return records
}

func accountingState(rec map[string]string) string {
	exit := rec["exit_status"]
	failed := rec["failed"]
	switch {
	case exit == "137":
		return "deleted"
	case failed == "0" && exit == "0":
		return "done"
	case failed == "0":
		return "exit"
	}
	return "failed"
}

// DefaultStates returns the canonical status of Grid Engine job states.
//
// done, exit, failed and deleted are derived from accounting records.
func DefaultStates() prov.StateMap {
	return prov.StateMap{
		prov.StatusPending:   {"qw", "hqw", "hRwq", "Rq"},
		prov.StatusRunning:   {"r", "t", "Rr", "Rt"},
		prov.StatusCancelled: {"dr", "dt", "dRr", "deleted"},
		prov.StatusCompleted: {"done"},
		prov.StatusError:     {"Eqw", "failed", "exit"},
		prov.StatusException: {"s", "S", "T", "Rs", "ts", "tS"},
	}
}

// Generic returns a dialect for a Grid Engine cluster without site specifics.
//
// Grid Engine has no node count request, parallel environments are used instead.
func Generic() *prov.Dialect {
	return &prov.Dialect{
		Name:       "sge",
		Shebang:    prov.DefaultShebang,
		Directive:  "#$",
		FlagPrefix: "-",
		Flags: map[prov.Keyword]prov.FlagName{
			prov.NodeCores:  {ByCoreType: map[string]string{prov.CPU: "pe smp ", prov.GPU: "l gpu="}},
			prov.JobName:    {Name: "N "},
			prov.Partition:  {Name: "q "},
			prov.MemPerCore: {Name: "l h_vmem="},
			prov.Walltime:   {Name: "l h_rt="},
			prov.Account:    {Name: "A "},
		},
		States: DefaultStates(),
		ResourcePresets: map[string]prov.Resources{
			"cpu": prov.NewResources("core_type", "cpu", "node_cores", "8", "mem_per_core", "2G", "walltime", "24:00:00"),
		},
	}
}

// Dialects returns every builtin Grid Engine dialect
func Dialects() []*prov.Dialect {
	return []*prov.Dialect{Generic()}
}

// New returns a Grid Engine backend for the given dialect
func New(d *prov.Dialect, runner executil.Runner, cfg config.Configuration) (*batch.Backend, error) {
	return batch.New(d, Flavor(), runner, cfg)
}
