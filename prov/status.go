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
	"strings"

	"github.com/ystia/clusterjob/helper/collections"
)

// Status is a canonical job status, independent of the scheduler
type Status string

const (
	// StatusPending is the status of a job waiting for resources
	StatusPending Status = "pend"
	// StatusRunning is the status of a running job
	StatusRunning Status = "run"
	// StatusCancelled is the status of a job cancelled by a user or a scheduler limit
	StatusCancelled Status = "cancel"
	// StatusCompleted is the status of a job that ended successfully
	StatusCompleted Status = "complete"
	// StatusError is the status of a job that failed
	StatusError Status = "error"
	// StatusException is the status of a job in an unusual scheduler state
	StatusException Status = "exception"
)

// Statuses lists canonical statuses in lookup order
var Statuses = []Status{StatusPending, StatusRunning, StatusCancelled, StatusCompleted, StatusError, StatusException}

// ParseStatus returns the canonical status matching the given string
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, c := range Statuses {
		if c == st {
			return st, nil
		}
	}
	return "", NewConfigurationError("", "unknown canonical status %q", s)
}

// IsTerminal returns true if a job in this status will not change anymore
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusError, StatusException:
		return true
	}
	return false
}

// Outcome returns the status used for terminal detection: exception states are reported as errors
func (s Status) Outcome() Status {
	if s == StatusException {
		return StatusError
	}
	return s
}

// StateMap maps each canonical status to the raw scheduler states meaning it
type StateMap map[Status][]string

// Validate checks that only canonical statuses are used and that raw states sets are disjoint
func (m StateMap) Validate(backend string) error {
	seen := make(map[string]Status)
	for st, raws := range m {
		if _, err := ParseStatus(string(st)); err != nil {
			return NewConfigurationError(backend, "state map uses unknown canonical status %q", st)
		}
		for _, raw := range raws {
			if prev, ok := seen[raw]; ok && prev != st {
				return NewConfigurationError(backend, "raw state %q is mapped to both %q and %q", raw, prev, st)
			}
			seen[raw] = st
		}
	}
	if len(seen) == 0 {
		return NewConfigurationError(backend, "empty state map")
	}
	return nil
}

// Classify returns the canonical status of a raw scheduler state.
//
// A raw state absent from every bucket is a ConfigurationError: the state map is stale.
func (m StateMap) Classify(backend, raw string) (Status, error) {
	for _, st := range Statuses {
		if collections.ContainsString(m[st], raw) {
			return st, nil
		}
	}
	return "", NewConfigurationError(backend, "unrecognized scheduler state %q", raw)
}
