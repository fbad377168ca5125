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
	"context"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/pkg/errors"

	"github.com/ystia/clusterjob/helper/metricsutil"
	"github.com/ystia/clusterjob/log"
)

// SourceResult holds the data rows returned by a status source along with
// the raw outputs of the query
type SourceResult struct {
	Rows   []string
	Stdout string
	Stderr string
}

// A Source is a job information query mechanism, such as a queue snapshot
// or an accounting database.
//
// Query returns a ControlCommandError with Timeout set when the query timed
// out, any other error is considered as a miss.
type Source interface {
	Name() string
	Query(ctx context.Context, jobID, field string) (SourceResult, error)
}

// Resolver queries job information from an ordered list of sources.
//
// Sources are ordered from the fastest, which may forget about ended jobs,
// to the most durable, which may lag behind the scheduler.
type Resolver struct {
	Backend string
	Sources []Source
	// Sleep waits before a fallback, it defaults to a context aware sleep
	Sleep func(ctx context.Context, d time.Duration) error
}

// QueryField returns the value of field for the given job from the first
// source that yields a data row.
//
// The given wait is observed before each fallback so that the next source
// catches up with the scheduler. A source failing to run counts as a miss,
// timeouts and configuration errors are returned at once. A
// JobInfoUnavailableError is returned when no source knows the job.
func (r *Resolver) QueryField(ctx context.Context, jobID, field string, wait time.Duration) (string, error) {
	if len(r.Sources) == 0 {
		return "", NewConfigurationError(r.Backend, "no status source defined")
	}
	var last SourceResult
	for i, src := range r.Sources {
		if i > 0 {
			log.Debugf("Job %q not found by %q on backend %q, waiting %v before querying %q", jobID, r.Sources[i-1].Name(), r.Backend, wait, src.Name())
			metrics.IncrCounter(metricsutil.Key("backend", r.Backend, "status", "fallbacks"), 1)
			if err := r.sleep(ctx, wait); err != nil {
				return "", errors.Wrapf(err, "interrupted while waiting to query job %q on backend %q", jobID, r.Backend)
			}
		}
		res, err := src.Query(ctx, jobID, field)
		last = res
		if err != nil {
			if isTimeout(err) || IsConfigurationError(err) {
				return "", err
			}
			if ctx.Err() != nil {
				return "", errors.Wrapf(ctx.Err(), "query of job %q on backend %q interrupted", jobID, r.Backend)
			}
			log.Debugf("Query of job %q with %q failed on backend %q: %v", jobID, src.Name(), r.Backend, err)
			continue
		}
		if len(res.Rows) > 0 {
			return trimField(res.Rows[0]), nil
		}
	}
	return "", &JobInfoUnavailableError{Backend: r.Backend, JobID: jobID, Field: field, Stdout: last.Stdout, Stderr: last.Stderr}
}

// ResolveStatus queries the state field of a job and classifies it using states
func (r *Resolver) ResolveStatus(ctx context.Context, jobID, field string, states StateMap, wait time.Duration) (Status, string, error) {
	raw, err := r.QueryField(ctx, jobID, field, wait)
	if err != nil {
		return "", "", err
	}
	st, err := states.Classify(r.Backend, raw)
	if err != nil {
		return "", raw, errors.Wrapf(err, "failed to resolve status of job %q", jobID)
	}
	return st, raw, nil
}

func (r *Resolver) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func trimField(row string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(row), "+"))
}

func isTimeout(err error) bool {
	e, ok := errors.Cause(err).(*ControlCommandError)
	return ok && e.Timeout
}
