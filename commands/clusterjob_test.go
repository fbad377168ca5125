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
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/log"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/registry"
)

const labDialects = `dialects:
  - name: Lab
    flavor: sge
    flags:
      job_name: "N "
      walltime: l h_rt=
  - name: Hopper
    flavor: slurm
    flags:
      node_cores:
        cpu: ntasks-per-node=
        gpu: gpus-per-node=
      partition: partition=
`

func writeDialects(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "dialects.yaml")
	require.NoError(t, ioutil.WriteFile(p, []byte(content), 0644))
	return p
}

// viper is a process wide singleton, tests using it are not run in parallel
func TestGetConfig(t *testing.T) {
	defer func() {
		viper.Set("debug", false)
		viper.Set("dry_run", false)
		viper.Set("poll_interval", config.DefaultPollInterval)
		viper.Set("dialect_files", nil)
		viper.Set("clusters", nil)
	}()
	viper.Set("debug", true)
	viper.Set("dry_run", true)
	viper.Set("poll_interval", "10s")
	viper.Set("dialect_files", []string{"/etc/a.yaml,/etc/b.yaml"})
	viper.Set("clusters", map[string]interface{}{
		"ACCRE": map[string]interface{}{
			"default_resources": []interface{}{"account=xxx"},
			"env":               "module load GCC",
		},
	})

	cfg := getConfig()
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, config.DefaultControlTimeout, cfg.ControlTimeout)
	assert.Equal(t, config.DefaultLedgerPath, cfg.LedgerPath)
	assert.Equal(t, version, cfg.ToolVersion)
	assert.Equal(t, []string{"/etc/a.yaml", "/etc/b.yaml"}, cfg.DialectFiles)
	assert.Equal(t, []string{"account=xxx"}, cfg.Cluster("accre").GetStringSlice("default_resources"))
	assert.Equal(t, []string{"module load GCC"}, cfg.Cluster("Accre").GetStringSlice("env"))
}

func TestSetLogLevel(t *testing.T) {
	defer log.SetDebug(log.IsDebug())
	log.SetDebug(false)

	cfg := config.NewDefault()
	setLogLevel(cfg)
	assert.False(t, log.IsDebug())

	cfg.Debug = true
	setLogLevel(cfg)
	assert.True(t, log.IsDebug())
}

func TestBuildRegistry(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefault()
	cfg.DialectFiles = []string{writeDialects(t, labDialects)}
	reg, err := buildRegistry(cfg, nil)
	require.NoError(t, err)

	var names []string
	for _, m := range reg.List() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"ACCRE", "EXPANSE", "Hopper", "Lab", "sge", "slurm"}, names)

	for _, m := range reg.List() {
		switch m.Name {
		case "Lab", "Hopper":
			assert.Equal(t, cfg.DialectFiles[0], m.Origin)
		default:
			assert.Equal(t, registry.BuiltinOrigin, m.Origin)
		}
	}

	lab, err := reg.Get("lab")
	require.NoError(t, err)
	assert.Equal(t, "sge", lab.(flavored).Flavor())
	header, err := lab.Dialect().Header(prov.NewResources("job_name", "md", "walltime", "01:00:00"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n#$ -N md\n#$ -l h_rt=01:00:00\n", header)

	hopper, err := reg.Get("hopper")
	require.NoError(t, err)
	header, err = hopper.Dialect().Header(prov.NewResources("core_type", "gpu", "node_cores", "2"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\n#SBATCH --gpus-per-node=2\n", header)
}

func TestBuildRegistryErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"UnknownFlavor", "dialects:\n  - name: Other\n    flavor: pbs\n"},
		{"DuplicateName", "dialects:\n  - name: accre\n    flavor: slurm\n"},
		{"InvalidYAML", "dialects: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.NewDefault()
			cfg.DialectFiles = []string{writeDialects(t, tt.content)}
			_, err := buildRegistry(cfg, nil)
			assert.Error(t, err)
		})
	}

	cfg := config.NewDefault()
	cfg.DialectFiles = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := buildRegistry(cfg, nil)
	assert.Error(t, err)
}

func TestGetBackend(t *testing.T) {
	t.Parallel()
	_, err := getBackend(config.NewDefault(), "")
	assert.Error(t, err)
	b, err := getBackend(config.NewDefault(), "expanse")
	require.NoError(t, err)
	assert.Equal(t, "EXPANSE", b.Name())
}
