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

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/jobs"
	"github.com/ystia/clusterjob/prov"
)

type jobControl struct {
	use   string
	short string
	long  string
	done  string
	op    func(ctx context.Context, j *jobs.Job) error
}

var jobControls = []jobControl{
	{
		use:   "cancel",
		short: "Cancel jobs",
		long:  `Request the cancellation of jobs. It does not wait for jobs to end, use the wait command for that.`,
		done:  "cancellation requested",
		op: func(ctx context.Context, j *jobs.Job) error {
			return j.Kill(ctx)
		},
	},
	{
		use:   "hold",
		short: "Hold pending jobs",
		long:  `Prevent pending jobs from starting until they are released.`,
		done:  "held",
		op: func(ctx context.Context, j *jobs.Job) error {
			return j.Hold(ctx)
		},
	},
	{
		use:   "release",
		short: "Release held jobs",
		long:  `Allow held jobs to start.`,
		done:  "released",
		op: func(ctx context.Context, j *jobs.Job) error {
			return j.Release(ctx)
		},
	},
}

func init() {
	for _, c := range jobControls {
		c := c
		var cluster string
		cmd := &cobra.Command{
			Use:   c.use + " <job id>...",
			Short: c.short,
			Long:  c.long,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := getConfig()
				backend, err := getBackend(cfg, cluster)
				if err != nil {
					return err
				}
				return runControl(cmd.Context(), cfg, backend, c, args)
			},
		}
		addClusterFlag(cmd, &cluster)
		RootCmd.AddCommand(cmd)
	}
}

func runControl(ctx context.Context, cfg config.Configuration, backend prov.Backend, c jobControl, ids []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs error
	for _, id := range ids {
		if err := c.op(ctx, jobs.Attach(backend, id, "", "", jobs.WithConfiguration(cfg))); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		fmt.Printf("Job %s %s\n", id, c.done)
	}
	return errs
}
