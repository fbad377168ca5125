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
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/jobs"
	"github.com/ystia/clusterjob/log"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/script"
)

type submitOptions struct {
	cluster        string
	dir            string
	scriptPath     string
	commands       []string
	env            []string
	envPreset      string
	coreType       string
	resources      []string
	resourcePreset string
	resourceFile   string
	wait           bool
	cleanup        bool
}

func init() {
	var opts submitOptions
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job",
		Long: `Build a submission script from commands, environment setup and resources then submit it.

Resources are canonical keywords (core_type, nodes, node_cores, job_name, partition,
mem_per_core, walltime, account) translated into the cluster scheduler flags.
Flags override the resource preset which overrides the cluster default_resources.`,
		Example: `  clusterjob submit -C ACCRE --core-type gpu --env-preset amber --res node_cores=1 --res walltime=24:00:00 --cmd "pmemd.cuda -O -i md.in"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runSubmit(ctx, getConfig(), opts)
		},
	}
	addClusterFlag(submitCmd, &opts.cluster)
	submitCmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "Directory the job is submitted from")
	submitCmd.Flags().StringVar(&opts.scriptPath, "script", "", "Path of the submission script (default is a new submit.cmd file in the job directory)")
	submitCmd.Flags().StringArrayVar(&opts.commands, "cmd", nil, "Command line of the job, may be repeated")
	submitCmd.Flags().StringArrayVar(&opts.env, "env", nil, "Environment setup line, may be repeated")
	submitCmd.Flags().StringVar(&opts.envPreset, "env-preset", "", "Name of a cluster environment preset (ex: amber, g16)")
	submitCmd.Flags().StringVar(&opts.coreType, "core-type", "", "Core type of the job (cpu or gpu)")
	submitCmd.Flags().StringArrayVar(&opts.resources, "res", nil, "Resource as keyword=value, may be repeated")
	submitCmd.Flags().StringVar(&opts.resourcePreset, "res-preset", "", "Name of a cluster resource preset (ex: cpu, gpu)")
	submitCmd.Flags().StringVar(&opts.resourceFile, "res-file", "", "File containing a pre-formatted resource section used verbatim")
	submitCmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for the job to end")
	submitCmd.Flags().BoolVar(&opts.cleanup, "cleanup", false, "Remove the scheduler log once the job ended, requires --wait")
	RootCmd.AddCommand(submitCmd)
}

func runSubmit(ctx context.Context, cfg config.Configuration, opts submitOptions) error {
	if opts.cleanup && !opts.wait {
		return errors.New("--cleanup requires --wait")
	}
	backend, err := getBackend(cfg, opts.cluster)
	if err != nil {
		return err
	}
	if len(opts.commands) == 0 {
		return prov.NewConfigurationError(backend.Name(), "no command to run, use the --cmd flag")
	}
	resources, err := submitResources(backend, cfg.Cluster(opts.cluster), opts)
	if err != nil {
		return err
	}
	coreType := opts.coreType
	if resources.Kind() == script.KindMapping {
		if ct, ok := resources.Resources().Get(prov.CoreType); ok {
			coreType = ct
		}
	}
	if coreType == "" {
		coreType = prov.CPU
	}
	env, err := submitEnvironment(backend, cfg.Cluster(opts.cluster), coreType, opts)
	if err != nil {
		return err
	}

	jobOpts := []jobs.Option{jobs.WithConfiguration(cfg)}
	if !cfg.DryRun {
		if err = prov.CheckExecutables(backend, nil); err != nil {
			return err
		}
		l, err := openLedger(cfg)
		if err != nil {
			log.Warnf("submission will not be recorded: %v", err)
		} else {
			defer l.Close()
			jobOpts = append(jobOpts, jobs.WithRecorder(l))
		}
	}

	job, err := jobs.Configure(backend, script.Lines(opts.commands...), env, resources, jobOpts...)
	if err != nil {
		return err
	}
	jobID, err := job.Submit(ctx, opts.dir, opts.scriptPath)
	if err == jobs.ErrDryRun {
		fmt.Printf("Dry run: script deployed at %s\n", job.ScriptPath())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Submitted job %s on %s\n", jobID, backend.Name())
	fmt.Printf("Log file: %s\n", job.LogPath())
	if !opts.wait {
		return nil
	}

	st, raw, err := job.WaitToEnd(ctx, cfg.PollInterval)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s ended: %s (%s)\n", jobID, coloredStatus(!NoColor, st), raw)
	if opts.cleanup {
		job.Cleanup()
	}
	if st != prov.StatusCompleted {
		return errors.Errorf("job %q did not complete (status: %s)", jobID, st)
	}
	return nil
}

// submitResources returns the resource section input of the job
func submitResources(backend prov.Backend, cc config.ClusterConfig, opts submitOptions) (script.Input, error) {
	if opts.resourceFile != "" {
		b, err := ioutil.ReadFile(opts.resourceFile)
		if err != nil {
			return script.Input{}, errors.Wrapf(err, "failed to read resource file %q", opts.resourceFile)
		}
		return script.Text(string(b)), nil
	}
	res, err := prov.ParseResources(opts.resources)
	if err != nil {
		return script.Input{}, err
	}
	if opts.coreType != "" {
		res = res.Set(prov.CoreType, opts.coreType)
	}
	if opts.resourcePreset != "" {
		preset, err := backend.Dialect().ResourcePreset(opts.resourcePreset)
		if err != nil {
			return script.Input{}, err
		}
		res = res.WithDefaults(preset)
	}
	defaults, err := prov.ParseResources(cc.GetStringSlice("default_resources"))
	if err != nil {
		return script.Input{}, errors.Wrapf(err, "invalid default_resources for cluster %q", backend.Name())
	}
	return script.Mapping(res.WithDefaults(defaults)), nil
}

// submitEnvironment returns the environment setup of the job: cluster env
// lines first, then the preset, then lines given on the command line
func submitEnvironment(backend prov.Backend, cc config.ClusterConfig, coreType string, opts submitOptions) (script.Environment, error) {
	var settings []prov.EnvSetting
	for _, line := range cc.GetStringSlice("env") {
		settings = append(settings, prov.EnvSetting{Head: line})
	}
	if opts.envPreset != "" {
		preset, err := backend.Dialect().EnvPreset(opts.envPreset, coreType)
		if err != nil {
			return script.Environment{}, err
		}
		settings = append(settings, preset)
	}
	for _, line := range opts.env {
		settings = append(settings, prov.EnvSetting{Head: line})
	}
	return script.EnvFromPresets(settings...), nil
}
