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
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/helper/tabutil"
	"github.com/ystia/clusterjob/jobs"
	"github.com/ystia/clusterjob/ledger"
	"github.com/ystia/clusterjob/log"
	"github.com/ystia/clusterjob/prov"
)

func init() {
	var cluster, field string
	statusCmd := &cobra.Command{
		Use:   "status <job id>...",
		Short: "Print the status of jobs",
		Long: `Print the canonical and raw status of jobs.
With --field the raw value of a scheduler field is printed instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cfg := getConfig()
			backend, err := getBackend(cfg, cluster)
			if err != nil {
				return err
			}
			if field != "" {
				return runQueryField(ctx, cfg, backend, field, args)
			}
			return runStatus(ctx, cfg, backend, args)
		},
	}
	addClusterFlag(statusCmd, &cluster)
	statusCmd.Flags().StringVarP(&field, "field", "f", "", "Scheduler field to query (ex: NodeList)")
	RootCmd.AddCommand(statusCmd)

	var cleanup bool
	waitCmd := &cobra.Command{
		Use:   "wait <job id>...",
		Short: "Wait for jobs to end",
		Long: `Poll jobs until they all reach a terminal state then print their final status.
Status queries are throttled across jobs, see query_rate and max_parallel_monitors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cfg := getConfig()
			backend, err := getBackend(cfg, cluster)
			if err != nil {
				return err
			}
			return runWait(ctx, cfg, backend, cleanup, args)
		},
	}
	addClusterFlag(waitCmd, &cluster)
	waitCmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove scheduler logs of ended jobs")
	RootCmd.AddCommand(waitCmd)
}

// attachJobs returns jobs bound to already submitted job ids. Known jobs get
// their directory and log path from the ledger.
func attachJobs(cfg config.Configuration, backend prov.Backend, ids []string) ([]*jobs.Job, func()) {
	opts := []jobs.Option{jobs.WithConfiguration(cfg)}
	l, err := openLedger(cfg)
	if err != nil {
		log.Warnf("job statuses will not be recorded: %v", err)
	} else {
		opts = append(opts, jobs.WithRecorder(l))
	}
	result := make([]*jobs.Job, 0, len(ids))
	for _, id := range ids {
		var rec ledger.Record
		if l != nil {
			rec, _ = l.Get(backend.Name(), id)
		}
		result = append(result, jobs.Attach(backend, id, rec.SubDir, rec.LogPath, opts...))
	}
	return result, func() {
		if l != nil {
			l.Close()
		}
	}
}

func runStatus(ctx context.Context, cfg config.Configuration, backend prov.Backend, ids []string) error {
	js, done := attachJobs(cfg, backend, ids)
	defer done()
	colorize := !NoColor
	if colorize {
		defer color.Unset()
	}
	table := tabutil.NewTable()
	table.AddHeaders("Job Id", "Status", "Scheduler State")
	var errs error
	for _, j := range js {
		st, raw, err := j.GetState(ctx)
		if err != nil {
			errs = multierror.Append(errs, err)
			table.AddRow(j.JobID(), coloredError(colorize, "unknown"), raw)
			continue
		}
		table.AddRow(j.JobID(), coloredStatus(colorize, st), raw)
	}
	fmt.Println(table.Render())
	return errs
}

func runQueryField(ctx context.Context, cfg config.Configuration, backend prov.Backend, field string, ids []string) error {
	table := tabutil.NewTable()
	table.AddHeaders("Job Id", field)
	var errs error
	for _, id := range ids {
		v, err := backend.QueryField(ctx, id, field, cfg.StatusFallbackWait)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		table.AddRow(id, v)
	}
	fmt.Println(table.Render())
	return errs
}

func runWait(ctx context.Context, cfg config.Configuration, backend prov.Backend, cleanup bool, ids []string) error {
	js, done := attachJobs(cfg, backend, ids)
	defer done()
	waitErr := jobs.WaitAll(ctx, js, jobs.WaitOptionsFromConfig(cfg))

	colorize := !NoColor
	if colorize {
		defer color.Unset()
	}
	table := tabutil.NewTable()
	table.AddHeaders("Job Id", "Status", "Scheduler State")
	for _, j := range js {
		st, raw := j.LastStatus()
		if !st.IsTerminal() {
			table.AddRow(j.JobID(), coloredError(colorize, "unknown"), raw)
			continue
		}
		table.AddRow(j.JobID(), coloredStatus(colorize, st.Outcome()), raw)
		if cleanup {
			j.Cleanup()
		}
	}
	fmt.Println(table.Render())
	return waitErr
}

// coloredStatus returns the status colored according to its outcome:
// - green for a completed job
// - cyan for a pending or running job
// - yellow for a cancelled job
// - red for a failed job
func coloredStatus(colorize bool, st prov.Status) string {
	text := string(st)
	if !colorize {
		return text
	}
	switch st {
	case prov.StatusCompleted:
		return color.New(color.FgHiGreen, color.Bold).SprintFunc()(text)
	case prov.StatusPending, prov.StatusRunning:
		return color.New(color.FgHiCyan, color.Bold).SprintFunc()(text)
	case prov.StatusCancelled:
		return color.New(color.FgHiYellow, color.Bold).SprintFunc()(text)
	case prov.StatusError, prov.StatusException:
		return coloredError(colorize, text)
	default:
		return text
	}
}

func coloredError(colorize bool, text string) string {
	if !colorize {
		return text
	}
	return color.New(color.FgHiRed, color.Bold).SprintFunc()(text)
}
