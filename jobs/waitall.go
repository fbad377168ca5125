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

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ystia/clusterjob/config"
	"github.com/ystia/clusterjob/log"
)

// WaitOptions tunes the monitoring of many jobs
type WaitOptions struct {
	// PollInterval is the delay between two polls of a job
	PollInterval time.Duration
	// MaxParallel is the maximum number of jobs monitored at the same time
	MaxParallel int
	// QueryRate is the maximum number of status queries per second across all jobs, 0 means unlimited
	QueryRate float64
}

// WaitOptionsFromConfig returns WaitOptions set from the configuration
func WaitOptionsFromConfig(cfg config.Configuration) WaitOptions {
	return WaitOptions{PollInterval: cfg.PollInterval, MaxParallel: cfg.MaxParallelMonitors, QueryRate: cfg.QueryRate}
}

// WaitAll waits for every job to reach a terminal state.
//
// Failures to monitor a job do not stop the monitoring of others, they are
// returned together once every job is done. Final states are available with
// Job.LastStatus, exception states included: apply prov.Status.Outcome to
// report them as errors like Job.WaitToEnd does.
func WaitAll(ctx context.Context, jobs []*Job, opts WaitOptions) error {
	limit := rate.Inf
	if opts.QueryRate > 0 {
		limit = rate.Limit(opts.QueryRate)
	}
	limiter := rate.NewLimiter(limit, 1)
	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = config.DefaultMaxParallelMonitors
	}

	var g errgroup.Group
	g.SetLimit(maxParallel)
	var mu sync.Mutex
	var errs error
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			st, raw, err := j.waitToEnd(ctx, opts.PollInterval, limiter.Wait)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, errors.Wrapf(err, "failed to monitor job %q", j.JobID()))
				mu.Unlock()
				return nil
			}
			log.Debugf("Job %q ended with status %s (%s)", j.JobID(), st, raw)
			return nil
		})
	}
	g.Wait()
	return errs
}
