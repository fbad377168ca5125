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

	"github.com/ystia/clusterjob/prov"
	"github.com/ystia/clusterjob/prov/slurm"
)

// mockBackend allows to mock a scheduler backend
type mockBackend struct {
	MockSubmit        func(ctx context.Context, jobDir, scriptPath string) (string, string, error)
	MockControl       func(ctx context.Context, op, jobID string) error
	MockResolveStatus func(ctx context.Context, jobID string) (prov.Status, string, error)
}

func (b *mockBackend) Name() string {
	return "mock"
}

func (b *mockBackend) Dialect() *prov.Dialect {
	return slurm.ACCRE()
}

func (b *mockBackend) Submit(ctx context.Context, jobDir, scriptPath string) (string, string, error) {
	if b.MockSubmit != nil {
		return b.MockSubmit(ctx, jobDir, scriptPath)
	}
	return "1", jobDir + "/slurm-1.out", nil
}

func (b *mockBackend) control(ctx context.Context, op, jobID string) error {
	if b.MockControl != nil {
		return b.MockControl(ctx, op, jobID)
	}
	return nil
}

func (b *mockBackend) Cancel(ctx context.Context, jobID string) error {
	return b.control(ctx, "cancel", jobID)
}

func (b *mockBackend) Hold(ctx context.Context, jobID string) error {
	return b.control(ctx, "hold", jobID)
}

func (b *mockBackend) Release(ctx context.Context, jobID string) error {
	return b.control(ctx, "release", jobID)
}

func (b *mockBackend) QueryField(ctx context.Context, jobID, field string, wait time.Duration) (string, error) {
	return "", nil
}

func (b *mockBackend) ResolveStatus(ctx context.Context, jobID string) (prov.Status, string, error) {
	if b.MockResolveStatus != nil {
		return b.MockResolveStatus(ctx, jobID)
	}
	return prov.StatusCompleted, "COMPLETED", nil
}

// statusSequence returns the given raw ACCRE states one after the other, the last one forever
func statusSequence(raws ...string) func(ctx context.Context, jobID string) (prov.Status, string, error) {
	var mu sync.Mutex
	i := 0
	states := slurm.DefaultStates()
	return func(ctx context.Context, jobID string) (prov.Status, string, error) {
		mu.Lock()
		defer mu.Unlock()
		raw := raws[i]
		if i < len(raws)-1 {
			i++
		}
		st, err := states.Classify("mock", raw)
		return st, raw, err
	}
}

type record struct {
	backend, jobID, subDir, scriptPath, logPath string
	status                                      prov.Status
	raw                                         string
}

// mockRecorder keeps records in memory
type mockRecorder struct {
	mu          sync.Mutex
	submissions []record
	statuses    []record
	err         error
}

func (r *mockRecorder) RecordSubmission(backend, jobID, subDir, scriptPath, logPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, record{backend: backend, jobID: jobID, subDir: subDir, scriptPath: scriptPath, logPath: logPath})
	return r.err
}

func (r *mockRecorder) RecordStatus(backend, jobID string, status prov.Status, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, record{backend: backend, jobID: jobID, status: status, raw: raw})
	return r.err
}
