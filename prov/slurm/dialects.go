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

package slurm

import (
	"github.com/ystia/clusterjob/prov"
)

// DefaultStates returns the canonical status of every Slurm job state
func DefaultStates() prov.StateMap {
	return prov.StateMap{
		prov.StatusPending:   {"CONFIGURING", "PENDING", "REQUEUE_FED", "REQUEUE_HOLD", "REQUEUED"},
		prov.StatusRunning:   {"COMPLETING", "RUNNING", "STAGE_OUT"},
		prov.StatusCancelled: {"CANCELLED", "DEADLINE", "TIMEOUT"},
		prov.StatusCompleted: {"COMPLETED"},
		prov.StatusError:     {"BOOT_FAIL", "FAILED", "NODE_FAIL", "OUT_OF_MEMORY", "PREEMPTED", "REVOKED", "STOPPED", "SUSPENDED"},
		prov.StatusException: {"RESIZING", "SIGNALING", "SPECIAL_EXIT", "RESV_DEL_HOLD"},
	}
}

func byCoreType(cpu, gpu string) prov.FlagName {
	return prov.FlagName{ByCoreType: map[string]string{prov.CPU: cpu, prov.GPU: gpu}}
}

// Generic returns a dialect for a Slurm cluster without site specifics
func Generic() *prov.Dialect {
	return &prov.Dialect{
		Name:       "slurm",
		Shebang:    prov.DefaultShebang,
		Directive:  "#SBATCH",
		FlagPrefix: "--",
		Flags: map[prov.Keyword]prov.FlagName{
			prov.Nodes:      {Name: "nodes="},
			prov.NodeCores:  byCoreType("ntasks-per-node=", "gpus-per-node="),
			prov.JobName:    {Name: "job-name="},
			prov.Partition:  {Name: "partition="},
			prov.MemPerCore: byCoreType("mem-per-cpu=", "mem-per-gpu="),
			prov.Walltime:   {Name: "time="},
			prov.Account:    {Name: "account="},
		},
		States: DefaultStates(),
	}
}

// ACCRE returns the dialect of the ACCRE cluster (Vanderbilt)
func ACCRE() *prov.Dialect {
	d := Generic()
	d.Name = "ACCRE"
	d.Flags[prov.NodeCores] = byCoreType("tasks-per-node=", "gres=gpu:")
	d.PartitionAliases = map[string]map[string]string{
		"production": {prov.CPU: "production", prov.GPU: "{maxwell,pascal,turing}"},
		"debug":      {prov.CPU: "debug", prov.GPU: "maxwell"},
	}
	d.EnvPresets = map[string]map[string]prov.EnvSetting{
		"amber": {
			prov.CPU: {Head: "module load GCC/6.4.0-2.28  OpenMPI/2.1.1\nmodule load Amber/17-Python-2.7.14"},
			prov.GPU: {Head: "source /home/shaoq1/bin/amber_env/amber-accre.sh"},
		},
		"g16": {
			prov.CPU: {
				Head: "module load Gaussian/16.B.01\nmkdir $TMPDIR/$SLURM_JOB_ID\nexport GAUSS_SCRDIR=$TMPDIR/$SLURM_JOB_ID",
				Tail: "rm -rf $TMPDIR/$SLURM_JOB_ID",
			},
		},
	}
	d.ResourcePresets = defaultResourcePresets()
	return d
}

// Expanse returns the dialect of the EXPANSE cluster (SDSC).
//
// EXPANSE schedules memory per node: mem_per_core is multiplied by node_cores.
func Expanse() *prov.Dialect {
	d := Generic()
	d.Name = "EXPANSE"
	d.Flags[prov.NodeCores] = byCoreType("ntasks-per-node=", "gpus=")
	d.Flags[prov.MemPerCore] = prov.FlagName{Name: "mem="}
	d.MemoryPerNode = true
	d.PartitionAliases = map[string]map[string]string{
		"production": {prov.CPU: "shared", prov.GPU: "gpu-shared"},
		"debug":      {prov.CPU: "debug", prov.GPU: "gpu-debug"},
	}
	d.EnvPresets = map[string]map[string]prov.EnvSetting{
		"amber": {
			prov.CPU: {Head: "module load cpu/0.15.4  gcc/9.2.0  openmpi/3.1.6\nmodule load amber/20"},
			prov.GPU: {Head: "module load gpu/0.15.4 openmpi/4.0.4\nmodule load amber/20"},
		},
		"g16": {
			prov.CPU: {
				Head: "module load cpu/0.15.4\nmodule load gaussian/16.C.01\nexport TMPDIR=/scratch/$USER/job_$SLURM_JOB_ID\nmkdir $TMPDIR\nexport GAUSS_SCRDIR=$TMPDIR",
				Tail: "rm -rf $TMPDIR",
			},
		},
	}
	d.ResourcePresets = defaultResourcePresets()
	return d
}

// Dialects returns every builtin Slurm dialect
func Dialects() []*prov.Dialect {
	return []*prov.Dialect{ACCRE(), Expanse(), Generic()}
}

func defaultResourcePresets() map[string]prov.Resources {
	return map[string]prov.Resources{
		"cpu": prov.NewResources(
			"core_type", "cpu",
			"nodes", "1",
			"node_cores", "24",
			"partition", "production",
			"mem_per_core", "4G",
			"walltime", "24:00:00",
		),
		"gpu": prov.NewResources(
			"core_type", "gpu",
			"nodes", "1",
			"node_cores", "1",
			"partition", "production",
			"mem_per_core", "8G",
			"walltime", "24:00:00",
		),
	}
}
