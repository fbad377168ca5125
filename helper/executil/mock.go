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

package executil

import "context"

// MockRunner allows to mock external commands
type MockRunner struct {
	MockRun func(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// Run calls MockRun if defined and returns an empty result otherwise
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	if m.MockRun != nil {
		return m.MockRun(ctx, dir, name, args...)
	}
	return Result{}, nil
}
