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
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/executil"
	"github.com/ystia/clusterjob/helper/pathutil"
	"github.com/ystia/clusterjob/ledger"
	"github.com/ystia/clusterjob/log"
	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/prov/sge"
	"github.com/ystia/clusterjob/prov/slurm"
	"github.com/ystia/clusterjob/registry"
)

// NoColor disables coloring output
var NoColor bool

var cfgFile string

// RootCmd is the root of clusterjob commands tree
var RootCmd = &cobra.Command{
	Use:   "clusterjob",
	Short: "Submit and monitor jobs on HPC clusters",
	Long: `clusterjob builds submission scripts from canonical resources,
submits them to Slurm or Grid Engine clusters and tracks their status.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setLogLevel(getConfig())
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			fmt.Print(err)
		}
	},
}

func init() {
	setConfig()
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	}
	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Debugln("Using config file:", viper.ConfigFileUsed())
	} else {
		log.Debugln("Config not found... ")
	}
}

func setConfig() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is /etc/clusterjob/config.clusterjob.yaml)")
	RootCmd.PersistentFlags().Bool("debug", false, "Enable debug logs")
	RootCmd.PersistentFlags().Bool("dry-run", false, "Deploy submission scripts without submitting them")
	RootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable coloring output")
	RootCmd.PersistentFlags().String("ledger", config.DefaultLedgerPath, "Path of the submitted jobs ledger")
	RootCmd.PersistentFlags().Duration("control-timeout", config.DefaultControlTimeout, "Timeout of scheduler commands")
	RootCmd.PersistentFlags().Duration("poll-interval", config.DefaultPollInterval, "Delay between two status polls when waiting for jobs")
	RootCmd.PersistentFlags().StringSlice("dialect-files", nil, "YAML files defining additional clusters")

	viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("dry_run", RootCmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("ledger_path", RootCmd.PersistentFlags().Lookup("ledger"))
	viper.BindPFlag("control_timeout", RootCmd.PersistentFlags().Lookup("control-timeout"))
	viper.BindPFlag("poll_interval", RootCmd.PersistentFlags().Lookup("poll-interval"))
	viper.BindPFlag("dialect_files", RootCmd.PersistentFlags().Lookup("dialect-files"))

	//Environment Variables
	viper.SetEnvPrefix("clusterjob") // will be uppercased automatically - Become "CLUSTERJOB_"
	viper.AutomaticEnv()             // read in environment variables that match
	viper.BindEnv("working_directory")
	viper.BindEnv("debug")
	viper.BindEnv("dry_run")
	viper.BindEnv("ledger_path")
	viper.BindEnv("control_timeout")
	viper.BindEnv("status_fallback_wait")
	viper.BindEnv("poll_interval")
	viper.BindEnv("keep_backend_logs")
	viper.BindEnv("query_rate")
	viper.BindEnv("max_parallel_monitors")
	viper.BindEnv("dialect_files")

	//Setting Defaults
	viper.SetDefault("working_directory", ".")
	viper.SetDefault("ledger_path", config.DefaultLedgerPath)
	viper.SetDefault("control_timeout", config.DefaultControlTimeout)
	viper.SetDefault("status_fallback_wait", config.DefaultStatusFallbackWait)
	viper.SetDefault("poll_interval", config.DefaultPollInterval)
	viper.SetDefault("keep_backend_logs", config.DefaultKeepBackendLogs)
	viper.SetDefault("query_rate", config.DefaultQueryRate)
	viper.SetDefault("max_parallel_monitors", config.DefaultMaxParallelMonitors)

	//Configuration file directories
	viper.SetConfigName("config.clusterjob") // name of config file (without extension)
	viper.AddConfigPath("/etc/clusterjob/")
	if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home + "/.clusterjob")
	}
	viper.AddConfigPath(".")
}

func getConfig() config.Configuration {
	configuration := config.NewDefault()
	configuration.WorkingDirectory = viper.GetString("working_directory")
	configuration.ToolVersion = version
	configuration.Debug = viper.GetBool("debug")
	configuration.DryRun = viper.GetBool("dry_run")
	configuration.LedgerPath = viper.GetString("ledger_path")
	configuration.ControlTimeout = viper.GetDuration("control_timeout")
	configuration.StatusFallbackWait = viper.GetDuration("status_fallback_wait")
	configuration.PollInterval = viper.GetDuration("poll_interval")
	configuration.KeepBackendLogs = viper.GetBool("keep_backend_logs")
	configuration.QueryRate = viper.GetFloat64("query_rate")
	configuration.MaxParallelMonitors = viper.GetInt("max_parallel_monitors")
	for _, f := range viper.GetStringSlice("dialect_files") {
		// Cobra gives a slice with only one element containing comma separated input flags
		configuration.DialectFiles = append(configuration.DialectFiles, strings.Split(f, ",")...)
	}
	for name, c := range viper.GetStringMap("clusters") {
		configuration.Clusters[strings.ToLower(name)] = config.ClusterConfig(cast.ToStringMap(c))
	}
	if configuration.ControlTimeout <= 0 {
		configuration.ControlTimeout = config.DefaultControlTimeout
	}
	if configuration.PollInterval <= 0 {
		configuration.PollInterval = config.DefaultPollInterval
	}
	return configuration
}

// setLogLevel enables debug logs when the configuration asks for it, the
// CLUSTERJOB_LOG environment variable can still enable them otherwise
func setLogLevel(cfg config.Configuration) {
	if cfg.Debug {
		log.SetDebug(true)
	}
}

// buildRegistry registers the builtin backends and those defined in dialect files
func buildRegistry(cfg config.Configuration, runner executil.Runner) (registry.Registry, error) {
	reg := registry.New()
	for _, d := range slurm.Dialects() {
		if err := registerBackend(reg, slurm.FlavorName, d, runner, cfg, registry.BuiltinOrigin); err != nil {
			return nil, err
		}
	}
	for _, d := range sge.Dialects() {
		if err := registerBackend(reg, sge.FlavorName, d, runner, cfg, registry.BuiltinOrigin); err != nil {
			return nil, err
		}
	}
	files, err := pathutil.ExpandAll(cfg.DialectFiles)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		defs, err := prov.LoadDialects(f)
		if err != nil {
			return nil, err
		}
		for i := range defs {
			d := defs[i].Dialect
			if err = registerBackend(reg, defs[i].Flavor, &d, runner, cfg, f); err != nil {
				return nil, errors.Wrapf(err, "failed to load dialects file %q", f)
			}
		}
	}
	return reg, nil
}

func registerBackend(reg registry.Registry, flavor string, d *prov.Dialect, runner executil.Runner, cfg config.Configuration, origin string) error {
	var b prov.Backend
	var err error
	switch strings.ToLower(flavor) {
	case slurm.FlavorName:
		d.ApplyDefaults(slurm.Generic())
		b, err = slurm.New(d, runner, cfg)
	case sge.FlavorName:
		d.ApplyDefaults(sge.Generic())
		b, err = sge.New(d, runner, cfg)
	default:
		return prov.NewConfigurationError(d.Name, "unsupported scheduler flavor %q", flavor)
	}
	if err != nil {
		return err
	}
	return reg.Register(b, origin)
}

func getBackend(cfg config.Configuration, name string) (prov.Backend, error) {
	if name == "" {
		return nil, errors.New("a cluster name is required, use the --cluster flag")
	}
	reg, err := buildRegistry(cfg, nil)
	if err != nil {
		return nil, err
	}
	return reg.Get(name)
}

func openLedger(cfg config.Configuration) (*ledger.Ledger, error) {
	return ledger.Open(cfg.LedgerPath)
}

func addClusterFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "cluster", "C", "", "Name of the cluster (see the clusters command)")
}
