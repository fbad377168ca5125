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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDialect() *Dialect {
	return &Dialect{
		Name:       "test",
		Shebang:    DefaultShebang,
		Directive:  "#SBATCH",
		FlagPrefix: "--",
		Flags: map[Keyword]FlagName{
			Nodes:      {Name: "nodes="},
			NodeCores:  {ByCoreType: map[string]string{CPU: "tasks-per-node=", GPU: "gres=gpu:"}},
			JobName:    {Name: "job-name="},
			Partition:  {Name: "partition="},
			MemPerCore: {ByCoreType: map[string]string{CPU: "mem-per-cpu=", GPU: "mem-per-gpu="}},
			Walltime:   {Name: "time="},
			Account:    {Name: "account="},
		},
		PartitionAliases: map[string]map[string]string{
			"production": {CPU: "production", GPU: "{maxwell,pascal,turing}"},
		},
		States: StateMap{
			StatusPending:   {"PENDING"},
			StatusRunning:   {"RUNNING"},
			StatusCompleted: {"COMPLETED"},
			StatusCancelled: {"CANCELLED"},
			StatusError:     {"FAILED"},
			StatusException: {"SIGNALING"},
		},
		EnvPresets: map[string]map[string]EnvSetting{
			"g16": {CPU: {Head: "module load Gaussian/16.B.01", Tail: "rm -rf $TMPDIR/$SLURM_JOB_ID"}},
		},
		ResourcePresets: map[string]Resources{
			"cpu": NewResources("core_type", "cpu", "node_cores", "1"),
		},
	}
}

func fullCPUResources() Resources {
	return NewResources(
		"core_type", "cpu",
		"node_cores", "24",
		"job_name", "foo",
		"partition", "production",
		"mem_per_core", "4G",
		"walltime", "24:00:00",
		"account", "xxx",
	)
}

func TestDialectHeader(t *testing.T) {
	t.Parallel()
	d := testDialect()
	expected := "#!/bin/bash\n" +
		"#SBATCH --tasks-per-node=24\n" +
		"#SBATCH --job-name=foo\n" +
		"#SBATCH --partition=production\n" +
		"#SBATCH --mem-per-cpu=4G\n" +
		"#SBATCH --time=24:00:00\n" +
		"#SBATCH --account=xxx\n"

	first, err := d.Header(fullCPUResources())
	require.NoError(t, err)
	assert.Equal(t, expected, first)
	for i := 0; i < 10; i++ {
		again, err := d.Header(fullCPUResources())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDialectTranslate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		res     Resources
		want    Directives
		wantErr bool
	}{
		{"GPUVariants", NewResources("core_type", "gpu", "node_cores", "2", "mem_per_core", "8G"),
			Directives{{"gres=gpu:", "2"}, {"mem-per-gpu=", "8G"}}, false},
		{"KeepInputOrder", NewResources("walltime", "1:00:00", "core_type", "cpu", "nodes", "1", "job_name", "j"),
			Directives{{"time=", "1:00:00"}, {"nodes=", "1"}, {"job-name=", "j"}}, false},
		{"PartitionAlias", NewResources("core_type", "gpu", "partition", "production"),
			Directives{{"partition=", "{maxwell,pascal,turing}"}}, false},
		{"UnknownPartitionVerbatim", NewResources("core_type", "gpu", "partition", "pascal"),
			Directives{{"partition=", "pascal"}}, false},
		{"PartitionWithoutCoreType", NewResources("partition", "production"),
			Directives{{"partition=", "production"}}, false},
		{"Empty", Resources{}, Directives{}, false},
		{"NodeCoresWithoutCoreType", NewResources("node_cores", "24"), nil, true},
		{"MemWithoutCoreType", NewResources("job_name", "x", "mem_per_core", "4G"), nil, true},
		{"UnknownKeyword", NewResources("core_type", "cpu", "qos", "high"), nil, true},
		{"InvalidCoreType", NewResources("core_type", "fpga", "nodes", "1"), nil, true},
		{"InvalidNodes", NewResources("nodes", "zero"), nil, true},
		{"NegativeNodeCores", NewResources("core_type", "cpu", "node_cores", "-1"), nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := testDialect().Translate(tt.res)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigurationError(err), "expected a configuration error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialectTranslateMissingCoreTypeAlwaysFails(t *testing.T) {
	t.Parallel()
	d := testDialect()
	for _, k := range []Keyword{NodeCores, MemPerCore} {
		for _, others := range []Resources{
			{},
			NewResources("nodes", "2"),
			NewResources("job_name", "a", "account", "b", "walltime", "1:00"),
		} {
			res := others.Set(k, "4")
			_, err := d.Translate(res)
			assert.True(t, IsConfigurationError(err), "resources %v should fail with a configuration error", res.Strings())
		}
	}
}

func TestDialectTranslateUnsupportedKeyword(t *testing.T) {
	t.Parallel()
	d := testDialect()
	delete(d.Flags, Account)
	_, err := d.Translate(NewResources("account", "xxx"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "not supported")
}

func TestDialectMemoryPerNode(t *testing.T) {
	t.Parallel()
	d := testDialect()
	d.MemoryPerNode = true
	d.Flags[MemPerCore] = FlagName{Name: "mem="}

	dirs, err := d.Translate(NewResources("core_type", "cpu", "node_cores", "24", "mem_per_core", "4G"))
	require.NoError(t, err)
	assert.Equal(t, Directives{{"tasks-per-node=", "24"}, {"mem=", "96G"}}, dirs)

	_, err = d.Translate(NewResources("core_type", "cpu", "mem_per_core", "4G"))
	assert.True(t, IsConfigurationError(err))

	_, err = d.Translate(NewResources("core_type", "cpu", "node_cores", "2", "mem_per_core", "lots"))
	assert.True(t, IsConfigurationError(err))
}

func TestDialectFormat(t *testing.T) {
	t.Parallel()
	d := &Dialect{Name: "sge", Directive: "#$", FlagPrefix: "-"}
	got := d.Format(Directives{{"N ", "foo"}, {"l h_rt=", "1:00:00"}})
	assert.Equal(t, "#!/bin/bash\n#$ -N foo\n#$ -l h_rt=1:00:00\n", got)
	assert.Equal(t, "#!/bin/bash\n", d.Format(nil))
}

func TestDialectPresets(t *testing.T) {
	t.Parallel()
	d := testDialect()

	env, err := d.EnvPreset("g16", CPU)
	require.NoError(t, err)
	assert.Equal(t, "module load Gaussian/16.B.01", env.Head)
	assert.NotEmpty(t, env.Tail)

	_, err = d.EnvPreset("g16", GPU)
	assert.True(t, IsConfigurationError(err))
	_, err = d.EnvPreset("orca", CPU)
	assert.True(t, IsConfigurationError(err))

	res, err := d.ResourcePreset("cpu")
	require.NoError(t, err)
	v, ok := res.Get(CoreType)
	assert.True(t, ok)
	assert.Equal(t, CPU, v)
	_, err = d.ResourcePreset("huge")
	assert.True(t, IsConfigurationError(err))
}

func TestDialectValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, testDialect().Validate())

	noName := testDialect()
	noName.Name = ""
	assert.Error(t, noName.Validate())

	noDirective := testDialect()
	noDirective.Directive = ""
	assert.Error(t, noDirective.Validate())

	badFlag := testDialect()
	badFlag.Flags["qos"] = FlagName{Name: "qos="}
	assert.Error(t, badFlag.Validate())

	badAlias := testDialect()
	badAlias.PartitionAliases["debug"] = map[string]string{"tpu": "x"}
	assert.Error(t, badAlias.Validate())

	overlapping := testDialect()
	overlapping.States[StatusError] = append(overlapping.States[StatusError], "CANCELLED")
	assert.Error(t, overlapping.Validate())
}

func TestDialectApplyDefaults(t *testing.T) {
	t.Parallel()
	d := &Dialect{Name: "custom", Flags: map[Keyword]FlagName{JobName: {Name: "J "}}}
	d.ApplyDefaults(testDialect())
	assert.Equal(t, "#SBATCH", d.Directive)
	assert.Equal(t, "--", d.FlagPrefix)
	assert.Equal(t, DefaultShebang, d.Shebang)
	assert.Len(t, d.States, 6)
	assert.Equal(t, "J ", d.Flags[JobName].Name)
	require.NoError(t, d.Validate())
}
